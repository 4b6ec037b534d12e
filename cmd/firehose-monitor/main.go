// firehose-monitor subscribes to the AT Protocol firehose, matches
// record content against a configured keyword list, and records
// per-account activity for abuse-signal detection.
//
// It reads configuration from config.json in the working directory,
// connects to the moderation database (if configured), builds the
// matcher from the configured rule file, and streams firehose frames
// through the post-processor and activity recorder until interrupted.
//
// Usage:
//
//	./firehose-monitor         # reads ./config.json, starts streaming
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/primal-host/firehose-monitor/internal/config"
	"github.com/primal-host/firehose-monitor/internal/matcher"
	"github.com/primal-host/firehose-monitor/internal/metrics"
	"github.com/primal-host/firehose-monitor/internal/moderation"
	"github.com/primal-host/firehose-monitor/internal/network"
	"github.com/primal-host/firehose-monitor/internal/pipeline"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("firehose-monitor starting...")

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (firehose=%s rules=%s)", cfg.FirehoseURL, cfg.RuleFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down...", sig)
		cancel()
	}()

	rules, err := matcher.LoadRules(cfg.RuleFile)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}
	m, err := matcher.New(rules)
	if err != nil {
		log.Fatalf("Failed to build matcher: %v", err)
	}
	log.Printf("Matcher built with %d rules", len(rules))

	reg := metrics.New()

	var labeled *moderation.Cache
	if cfg.ModerationConnString != "" {
		labeled, err = moderation.Connect(ctx, cfg.ModerationConnString, cfg.LabeledAccountPollInterval.Duration())
		if err != nil {
			log.Printf("Warning: moderation cache disabled: %v", err)
			labeled = nil
		} else {
			defer labeled.Close()
		}
	}

	recorder := pipeline.NewRecorder(cfg.RecorderQueueSize, nil, reg)
	th := pipeline.Thresholds{
		Mention: cfg.MentionThreshold,
		Link:    cfg.LinkThreshold,
		Tag:     cfg.TagThreshold,
		Total:   cfg.TotalThreshold,
	}
	processor := pipeline.NewPostProcessor(cfg.PostQueueSize, m, reg, recorder, labeled, th)
	reader := network.NewReader(cfg.FirehoseURL, processor)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		recorder.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		processor.Run(ctx)
	}()

	if labeled != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labeled.Run(ctx)
		}()
	}

	if err := reader.Run(ctx); err != nil && ctx.Err() == nil {
		log.Printf("Firehose connection error: %v", err)
	}

	cancel()
	wg.Wait()
	log.Println("firehose-monitor stopped")
}
