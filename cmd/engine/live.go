package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/broker"
	"github.com/themirrorplatform/trading-bot-sub000/internal/config"
	"github.com/themirrorplatform/trading-bot-sub000/internal/feed"
	"github.com/themirrorplatform/trading-bot-sub000/internal/paramstore"
	"github.com/themirrorplatform/trading-bot-sub000/internal/quality"
	"github.com/themirrorplatform/trading-bot-sub000/internal/store"
	"github.com/themirrorplatform/trading-bot-sub000/internal/telemetry"
)

// liveFlags mirrors the teacher's Manager.Config/db.Config split: one
// struct holding every externally-configurable dependency, defaulting to
// the safe/disabled posture when a flag is left empty.
type liveFlags struct {
	configDir   string
	equityUSD   float64
	feedURL     string
	postgresDSN string
	redisAddr   string
	metricsAddr string
}

func newLiveCmd() *cobra.Command {
	flags := liveFlags{}

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the engine against a live market data feed",
		Long:  "Streams ticks/quotes over websocket, persists events/trades to Postgres, publishes learning parameter state to Redis, and serves Prometheus metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.configDir, "config", "config", "Directory holding the frozen config tree")
	cmd.Flags().Float64Var(&flags.equityUSD, "equity", 10000, "Account equity in USD for tier/risk gating")
	cmd.Flags().StringVar(&flags.feedURL, "feed-url", "", "Market data websocket URL (required)")
	cmd.Flags().StringVar(&flags.postgresDSN, "postgres-dsn", "", "Postgres DSN for the event/trade store (required)")
	cmd.Flags().StringVar(&flags.redisAddr, "redis-addr", "localhost:6379", "Redis address for parameter-state publication")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", ":9090", "Address to serve /metrics on")
	cmd.MarkFlagRequired("feed-url")
	cmd.MarkFlagRequired("postgres-dsn")

	return cmd
}

func runLive(ctx context.Context, flags liveFlags) error {
	root, err := config.Load(flags.configDir)
	if err != nil {
		return fmt.Errorf("engine: load config: %w", err)
	}

	db, err := sqlx.Open("postgres", flags.postgresDSN)
	if err != nil {
		return fmt.Errorf("engine: open postgres: %w", err)
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("engine: ping postgres: %w", err)
	}
	sink := store.NewEventStore(db, 5*time.Second)

	redisClient := redis.NewClient(&redis.Options{Addr: flags.redisAddr})
	defer redisClient.Close()
	params := paramstore.NewRedisStore(paramstore.ClientKV{Client: redisClient}, "", 2*time.Second)

	reg := telemetry.NewRegistry()
	go serveMetrics(flags.metricsAddr, reg)

	// The venue-specific wire protocol (RawClient) is explicitly out of
	// scope; the stub transport here exercises the breaker/throttle wrapper
	// exactly as a real adapter would, with a live market-data feed driving
	// decisions around it.
	rawClient := broker.NewStubClient()
	adapter := broker.NewAdapter(rawClient, root.Instrument.Symbol, 5, 5)
	orch := buildOrchestrator(root, adapter, sink)

	wsFeed := feed.NewWebSocketFeed(flags.feedURL)
	defer wsFeed.Close()

	agg := bar.NewAggregator(time.Minute)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-wsFeed.Out():
			if !ok {
				return fmt.Errorf("engine: feed closed")
			}
			finished, crossed, err := applyLiveMessage(agg, msg)
			if err != nil {
				log.Warn().Err(err).Msg("dropped out-of-order message")
				continue
			}
			if !crossed {
				continue
			}
			result, err := orch.ProcessBar(ctx, finished, quality.DataState{}, flags.equityUSD)
			if err != nil {
				return fmt.Errorf("engine: process bar: %w", err)
			}
			reg.RecordDecision(string(result.Reason))
			if current := params.Current(); current != nil {
				log.Debug().Msg("parameter state available for next cycle")
			}
		case err := <-wsFeed.Errs():
			log.Warn().Err(err).Msg("feed transport error")
		}
	}
}

func applyLiveMessage(agg *bar.Aggregator, msg feed.Message) (bar.Bar, bool, error) {
	if msg.Quote != nil {
		agg.OnQuote(*msg.Quote)
		return bar.Bar{}, false, nil
	}
	if msg.Tick != nil {
		return agg.OnTick(*msg.Tick)
	}
	return bar.Bar{}, false, nil
}

func serveMetrics(addr string, reg *telemetry.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	log.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
