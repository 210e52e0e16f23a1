package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/broker"
	"github.com/themirrorplatform/trading-bot-sub000/internal/config"
	"github.com/themirrorplatform/trading-bot-sub000/internal/event"
	"github.com/themirrorplatform/trading-bot-sub000/internal/feed"
	"github.com/themirrorplatform/trading-bot-sub000/internal/quality"
)

// replayRecord is one line of the replay fixture: either a tick or a quote,
// in a flat JSON shape of its own that recordToMessage converts into a
// feed.Message.
type replayRecord struct {
	Kind      string    `json:"kind"` // "tick" | "quote"
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price,omitempty"`
	Size      float64   `json:"size,omitempty"`
	Bid       float64   `json:"bid,omitempty"`
	Ask       float64   `json:"ask,omitempty"`
}

func newReplayCmd() *cobra.Command {
	var configDir, fixturePath string
	var equityUSD float64

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a recorded tick/quote fixture through the engine",
		Long:  "Drives the bar aggregator and orchestrator from a JSON fixture file, using in-memory stubs for the broker and event sink. No network or database access.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), configDir, fixturePath, equityUSD)
		},
	}

	cmd.Flags().StringVar(&configDir, "config", "config", "Directory holding the frozen config tree")
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "Path to a JSON array of replay records (required)")
	cmd.Flags().Float64Var(&equityUSD, "equity", 10000, "Account equity in USD for tier/risk gating")
	cmd.MarkFlagRequired("fixture")

	return cmd
}

func runReplay(ctx context.Context, configDir, fixturePath string, equityUSD float64) error {
	root, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("engine: load config: %w", err)
	}

	records, err := loadFixture(fixturePath)
	if err != nil {
		return fmt.Errorf("engine: load fixture: %w", err)
	}

	msgs := make([]feed.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, recordToMessage(r))
	}
	f := feed.NewReplayFeed(msgs)
	defer f.Close()

	sink := event.NewStubSink()
	stub := broker.NewStubClient()
	adapter := broker.NewAdapter(stub, "replay", 1000, 10)
	orch := buildOrchestrator(root, adapter, sink)

	agg := bar.NewAggregator(time.Minute)
	processed := 0

	for msg := range f.Out() {
		finished, ok, err := applyMessage(agg, msg)
		if err != nil {
			log.Warn().Err(err).Msg("dropped out-of-order message")
			continue
		}
		if !ok {
			continue
		}
		result, err := orch.ProcessBar(ctx, finished, quality.DataState{}, equityUSD)
		if err != nil {
			return fmt.Errorf("engine: process bar: %w", err)
		}
		processed++
		log.Info().
			Int("bar", processed).
			Time("timestamp", finished.Timestamp).
			Bool("no_trade", result.NoTrade).
			Str("reason", string(result.Reason)).
			Msg("bar processed")
	}

	if final, ok := agg.Flush(); ok {
		if _, err := orch.ProcessBar(ctx, final, quality.DataState{}, equityUSD); err != nil {
			return fmt.Errorf("engine: process final bar: %w", err)
		}
		processed++
	}

	log.Info().Int("bars_processed", processed).Int("events_emitted", len(sink.All())).Msg("replay complete")
	return nil
}

func loadFixture(path string) ([]replayRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []replayRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse fixture JSON: %w", err)
	}
	return records, nil
}

func recordToMessage(r replayRecord) feed.Message {
	switch r.Kind {
	case "quote":
		return feed.Message{Quote: &bar.Quote{Timestamp: r.Timestamp, Bid: r.Bid, Ask: r.Ask}}
	default:
		return feed.Message{Tick: &bar.Tick{Timestamp: r.Timestamp, Price: r.Price, Size: r.Size}}
	}
}

func applyMessage(agg *bar.Aggregator, msg feed.Message) (bar.Bar, bool, error) {
	if msg.Quote != nil {
		agg.OnQuote(*msg.Quote)
		return bar.Bar{}, false, nil
	}
	if msg.Tick != nil {
		return agg.OnTick(*msg.Tick)
	}
	return bar.Bar{}, false, nil
}
