package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/themirrorplatform/trading-bot-sub000/internal/belief"
	"github.com/themirrorplatform/trading-bot-sub000/internal/config"
	"github.com/themirrorplatform/trading-bot-sub000/internal/decision"
	"github.com/themirrorplatform/trading-bot-sub000/internal/event"
	"github.com/themirrorplatform/trading-bot-sub000/internal/execution"
	"github.com/themirrorplatform/trading-bot-sub000/internal/orchestrator"
	"github.com/themirrorplatform/trading-bot-sub000/internal/quality"
	"github.com/themirrorplatform/trading-bot-sub000/internal/signal"
)

// buildOrchestrator wires the signal/belief/decision/execution stack from a
// loaded config tree, the way runDefaultEntry in the teacher's main.go
// wires application.NewScanner from flags before invoking Run. The K1-K4
// template set itself stays code-defined (decision.DefaultTemplates) since
// a template's direction rule is a function, not a YAML-serializable
// value; everything else that config.Root carries (stop cap, risk model,
// instrument economics, session timezone) comes from the loaded tree.
func buildOrchestrator(root *config.Root, broker execution.Broker, sink event.Sink) *orchestrator.Orchestrator {
	decider := decision.NewEngine(decision.DefaultTemplates(), root.Constitution.ConstitutionalStopCapTicks)

	orderTTL := time.Duration(root.ExecutionContract.OrderTTLSeconds) * time.Second
	executor := execution.NewSupervisor(broker, orderTTL)

	loc, err := time.LoadLocation(root.Session.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", root.Session.Timezone).Msg("falling back to UTC")
		loc = time.UTC
	}

	maxRiskUSD := 0.0
	if n := len(root.RiskModel.TierBoundariesUSD); n > 0 {
		maxRiskUSD = root.RiskModel.TierBoundariesUSD[n-1]
	}

	return orchestrator.New(orchestrator.Config{
		StreamID:     root.Instrument.Symbol,
		TickSizeUSD:  root.Instrument.TickSize,
		TickValueUSD: root.Instrument.TickValueUSD,
		ConfigHash:   root.ConfigHash,
		Signals:      signal.NewEngine(loc),
		Beliefs:      belief.NewDefaultEngine(),
		Decider:      decider,
		Executor:     executor,
		Sink:         sink,
		DVSRules:     quality.RuleSetConfig{InitialValue: 1, RecoveryPerBar: 0.02},
		EQSRules:     quality.RuleSetConfig{InitialValue: 1, RecoveryPerBar: 0.02},
		Limits: orchestrator.RiskLimits{
			MaxDailyTrades:       root.RiskModel.MaxDailyTrades,
			MaxConsecutiveLosses: root.RiskModel.MaxConsecutiveLosses,
			CooldownBars:         root.RiskModel.CooldownBars,
			MaxRiskUSD:           maxRiskUSD,
			MaxDailyLossUSD:      root.RiskModel.MaxDailyLossUSD,
		},
		LotSplitT1:     root.InTrade.LotSplitT1,
		LotSplitT2:     root.InTrade.LotSplitT2,
		LotSplitRunner: root.InTrade.LotSplitRunner,
	})
}
