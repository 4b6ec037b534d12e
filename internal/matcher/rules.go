package matcher

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadRules reads one pattern per non-empty, non-comment line from path.
// Lines starting with '#' are ignored. Patterns are stored as given;
// canonicalization happens at Matcher construction time.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("matcher: open rule file %s: %w", path, err)
	}
	defer f.Close()

	var rules []Rule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, Rule{Pattern: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("matcher: read rule file %s: %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("matcher: rule file %s contains no patterns", path)
	}
	return rules, nil
}
