// Package orchestrator drives the bar -> signal -> belief -> decision ->
// execution -> learning cycle for a single instrument stream (spec.md
// §2, §5).
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
	"github.com/themirrorplatform/trading-bot-sub000/internal/belief"
	"github.com/themirrorplatform/trading-bot-sub000/internal/decision"
	"github.com/themirrorplatform/trading-bot-sub000/internal/event"
	"github.com/themirrorplatform/trading-bot-sub000/internal/execution"
	"github.com/themirrorplatform/trading-bot-sub000/internal/intrade"
	"github.com/themirrorplatform/trading-bot-sub000/internal/learning"
	"github.com/themirrorplatform/trading-bot-sub000/internal/quality"
	"github.com/themirrorplatform/trading-bot-sub000/internal/session"
	"github.com/themirrorplatform/trading-bot-sub000/internal/signal"
)

// RiskLimits is the orchestrator's copy of the daily/consecutive-loss
// bookkeeping the hard gates need (spec.md §4.5 gate 6).
type RiskLimits struct {
	MaxDailyTrades       int
	MaxConsecutiveLosses int
	CooldownBars         int
	MaxRiskUSD           float64
	MaxDailyLossUSD      float64 // 0 disables the gate
}

// Orchestrator is Thread D's single-threaded pipeline: one bar processed
// at a time, deterministic ordering, no I/O inside the compute path
// (spec.md §5 "Suspension/blocking points").
type Orchestrator struct {
	streamID     string
	tickSizeUSD  float64
	tickValueUSD float64
	configHash   string

	signals  *signal.Engine
	beliefs  *belief.Engine
	decider  *decision.Engine
	executor *execution.Supervisor
	regime   *learning.RegimeDetector
	book     *learning.QuarantineBook
	sink     event.Sink

	limits RiskLimits

	dvsRuleCfg quality.RuleSetConfig
	eqsRuleCfg quality.RuleSetConfig
	dvsPrior   *float64
	eqsPrior   *float64

	killSwitchActive  bool
	positionFlat      bool
	dailyTradeCount   int
	consecutiveLosses int
	dailyPnLUSD       float64
	barsSinceLastEntry int
	lastBarDate       time.Time

	lotSplitT1     float64
	lotSplitT2     float64
	lotSplitRunner float64
	intradeParams  intrade.Params
	activeTrade    *intrade.Manager
	currentVol     learning.VolRegime
	currentTrend   learning.TrendRegime
}

// Config bundles everything needed to construct an Orchestrator.
type Config struct {
	StreamID     string
	TickSizeUSD  float64
	TickValueUSD float64
	ConfigHash   string
	Signals      *signal.Engine
	Beliefs      *belief.Engine
	Decider      *decision.Engine
	Executor     *execution.Supervisor
	Sink         event.Sink
	DVSRules     quality.RuleSetConfig
	EQSRules     quality.RuleSetConfig
	Limits       RiskLimits

	LotSplitT1     float64 // fraction of contracts scaled out at T1, default 0.33
	LotSplitT2     float64 // fraction scaled out at T2, default 0.33
	LotSplitRunner float64 // remaining fraction trailing as the runner, default 0.34
	IntradeParams  intrade.Params
}

func New(cfg Config) *Orchestrator {
	lotT1, lotT2, lotRunner := cfg.LotSplitT1, cfg.LotSplitT2, cfg.LotSplitRunner
	if lotT1 <= 0 && lotT2 <= 0 && lotRunner <= 0 {
		lotT1, lotT2, lotRunner = 0.33, 0.33, 0.34
	}
	params := cfg.IntradeParams
	if params.Beta == 0 {
		params = intrade.DefaultParams()
	}
	return &Orchestrator{
		streamID:           cfg.StreamID,
		tickSizeUSD:        cfg.TickSizeUSD,
		tickValueUSD:       cfg.TickValueUSD,
		configHash:         cfg.ConfigHash,
		signals:            cfg.Signals,
		beliefs:            cfg.Beliefs,
		decider:            cfg.Decider,
		executor:           cfg.Executor,
		regime:             learning.NewRegimeDetector(),
		book:               learning.NewQuarantineBook(),
		sink:               cfg.Sink,
		limits:             cfg.Limits,
		dvsRuleCfg:         cfg.DVSRules,
		eqsRuleCfg:         cfg.EQSRules,
		positionFlat:       true,
		barsSinceLastEntry: 1 << 30, // effectively "never entered"
		lotSplitT1:         lotT1,
		lotSplitT2:         lotT2,
		lotSplitRunner:     lotRunner,
		intradeParams:      params,
	}
}

// ProcessBar runs one full cycle for a completed bar: compute signals,
// score DVS/EQS, step the belief engine, run the decision pipeline, and
// (on an order intent) submit through the execution supervisor. While
// flat, exactly one decision event and at most one order-intent event are
// emitted per bar (spec.md §5 "Ordering guarantees"). While a trade is
// open, the in-trade manager is stepped instead and one in-trade event
// replaces the decision event. A bar that fails its OHLC invariants emits
// no event.
func (o *Orchestrator) ProcessBar(ctx context.Context, b bar.Bar, dataState quality.DataState, equityUSD float64) (decision.Result, error) {
	if !b.Valid() {
		log.Error().Str("stream_id", o.streamID).Msg("bar failed OHLC invariants; forcing DVS to 0, no decision emitted")
		return decision.Result{NoTrade: true, Reason: decision.ReasonDVSTooLow}, nil
	}

	out := o.signals.Update(b)

	dvs := quality.ComputeDVS(dataState, o.dvsRuleCfg, o.dvsPrior)
	o.dvsPrior = &dvs
	eqs := quality.ComputeEQS(quality.ExecutionState{}, o.eqsRuleCfg, o.eqsPrior)
	o.eqsPrior = &eqs

	sigmaNorm := 1.0
	if atr14n := out.ATR14N; atr14n != nil {
		sigmaNorm = *atr14n
	}
	o.currentVol, o.currentTrend, _ = o.regime.Update(sigmaNorm, 0.5)

	o.rollDailyCountersIfNewSession(b)

	signalsMap := out.ToMap()
	known := out.Known()
	beliefs := o.beliefs.Step(signalsMap, known, out.SessionPhase, dvs, eqs)

	if o.activeTrade != nil {
		return o.advanceInTrade(ctx, b, signalsMap, beliefs, out.SessionPhase)
	}

	lunchGate := 1.0
	if out.LunchVoidGate != nil {
		lunchGate = *out.LunchVoidGate
	}

	decisionCtx := decision.Context{
		Now:                  time.Unix(out.Timestamp, 0).UTC(),
		KillSwitchActive:     o.killSwitchActive,
		DVS:                  dvs,
		EQS:                  eqs,
		Phase:                out.SessionPhase,
		LunchVoidGate:        lunchGate,
		PositionFlat:         o.positionFlat,
		DailyTradeCount:      o.dailyTradeCount,
		MaxDailyTrades:       o.limits.MaxDailyTrades,
		ConsecutiveLosses:    o.consecutiveLosses,
		MaxConsecutiveLosses: o.limits.MaxConsecutiveLosses,
		DailyPnLUSD:          o.dailyPnLUSD,
		MaxDailyLossUSD:      o.limits.MaxDailyLossUSD,
		BarsSinceLastEntry:   o.barsSinceLastEntry,
		CooldownBars:         o.limits.CooldownBars,
		EquityUSD:            equityUSD,
		MaxRiskUSD:           o.limits.MaxRiskUSD,
		TickValueUSD:         o.tickValueUSD,
		FrictionBaseUSD:      9,
		Signals:              signalsMap,
		Beliefs:              beliefs,
	}

	result := o.decider.Decide(decisionCtx, nil)

	if err := o.emitDecisionEvent(ctx, b, result); err != nil {
		return result, err
	}

	if !result.NoTrade {
		if err := o.submitOrderIntent(ctx, result, b, equityUSD); err != nil {
			return result, err
		}
		o.dailyTradeCount++
		o.barsSinceLastEntry = 0
		o.positionFlat = false
		o.activeTrade = o.openInTrade(result, b)
	} else {
		o.barsSinceLastEntry++
	}

	return result, nil
}

// openInTrade builds the in-trade manager for a fresh entry, splitting
// contracts across the T1/T2/runner lots (spec.md §4.7 "Entry inputs").
func (o *Orchestrator) openInTrade(result decision.Result, b bar.Bar) *intrade.Manager {
	dir := intrade.Long
	if result.Direction == decision.Short {
		dir = intrade.Short
	}

	entryPrice, stopPrice, _ := o.orderPrices(result, b)

	total := result.Contracts
	qtyA := int(float64(total) * o.lotSplitT1)
	qtyB := int(float64(total) * o.lotSplitT2)
	qtyC := total - qtyA - qtyB
	if qtyC < 0 {
		qtyC = 0
	}

	entryCtx := intrade.EntryContext{
		TradeID:      fmt.Sprintf("%s-%d", result.TemplateID, b.Timestamp.Unix()),
		Direction:    dir,
		EntryPrice:   entryPrice,
		InitialStop:  stopPrice,
		QtyTotal:     total,
		QtyA:         qtyA,
		QtyB:         qtyB,
		QtyC:         qtyC,
		TemplateID:   result.TemplateID,
		TickValueUSD: o.tickValueUSD,
	}
	return intrade.NewManager(entryCtx, o.intradeParams, o.tickSizeUSD)
}

// advanceInTrade steps the open trade's state machine one bar and emits
// the resulting in-trade event, closing the trade out through the usual
// post-trade bookkeeping on exit (spec.md §4.7, §4.9). While a trade is
// open the decision engine is not consulted; the in-trade manager is the
// sole authority over stops, scale-outs, and the exit itself.
func (o *Orchestrator) advanceInTrade(ctx context.Context, b bar.Bar, signalsMap map[string]float64, beliefs map[belief.ID]belief.Likelihood, phase session.Phase) (decision.Result, error) {
	atr := signalsMap["atr_14"]
	action := o.activeTrade.OnBar(intrade.BarInput{
		High:    b.High,
		Low:     b.Low,
		Close:   b.Close,
		ATR:     atr,
		Signals: signalsMap,
		Beliefs: beliefs,
	})

	templateID := o.activeTrade.TemplateID()
	result := decision.Result{NoTrade: true, Reason: decision.ReasonInPosition, TemplateID: templateID}

	if err := o.emitInTradeEvent(ctx, b, action); err != nil {
		return result, err
	}

	if action.Exit {
		entryPrice := o.activeTrade.EntryPrice()
		dir := o.activeTrade.ContextDirection()
		pnlUSD := float64(dir) * (action.ExitPrice - entryPrice) * float64(action.ExitQty) * o.tickValueUSD / o.tickSizeUSD

		o.activeTrade = nil
		o.OnTradeClosed(templateID, pnlUSD, o.currentVol, o.currentTrend, phase.String())
	}

	o.barsSinceLastEntry++
	return result, nil
}

func (o *Orchestrator) emitInTradeEvent(ctx context.Context, b bar.Bar, action intrade.Action) error {
	payload := map[string]any{
		"state":       string(action.NewState),
		"scaled_t1":   action.ScaledT1,
		"scaled_t2":   action.ScaledT2,
		"stop_moved":  action.StopMoved,
		"new_stop":    action.NewStopPrice,
		"exit":        action.Exit,
		"exit_reason": string(action.ExitReason),
		"exit_price":  action.ExitPrice,
		"exit_qty":    action.ExitQty,
	}
	e, err := event.New(o.streamID, b.Timestamp, event.TypeInTrade, payload, o.configHash)
	if err != nil {
		return fmt.Errorf("orchestrator: build in-trade event: %w", err)
	}
	return o.sink.Emit(ctx, e)
}

func (o *Orchestrator) rollDailyCountersIfNewSession(b bar.Bar) {
	day := session.SessionDate(b.Timestamp)
	if o.lastBarDate.IsZero() || !day.Equal(o.lastBarDate) {
		o.dailyTradeCount = 0
		o.consecutiveLosses = 0
		o.dailyPnLUSD = 0
		o.lastBarDate = day
	}
}

func (o *Orchestrator) emitDecisionEvent(ctx context.Context, b bar.Bar, result decision.Result) error {
	payload := map[string]any{
		"no_trade":    result.NoTrade,
		"reason":      string(result.Reason),
		"template_id": result.TemplateID,
		"direction":   int(result.Direction),
		"euc_score":   result.EUCScore,
	}
	e, err := event.New(o.streamID, b.Timestamp, event.TypeDecision, payload, o.configHash)
	if err != nil {
		return fmt.Errorf("orchestrator: build decision event: %w", err)
	}
	return o.sink.Emit(ctx, e)
}

// submitOrderIntent translates a decision.Result into an execution
// submit request and hands it to the supervisor, emitting the
// order-intent event first (spec.md §5 "exactly at most one order-intent
// event ... in that order").
func (o *Orchestrator) submitOrderIntent(ctx context.Context, result decision.Result, b bar.Bar, equityUSD float64) error {
	intentID := execution.NewIntentID()

	entryPrice, stopPrice, targetPrice := o.orderPrices(result, b)

	payload := map[string]any{
		"intent_id":    intentID,
		"template_id":  result.TemplateID,
		"direction":    int(result.Direction),
		"contracts":    result.Contracts,
		"stop_ticks":   result.StopTicks,
		"target_ticks": result.TargetTicks,
	}
	e, err := event.New(o.streamID, time.Now().UTC(), event.TypeOrderIntent, payload, o.configHash)
	if err != nil {
		return fmt.Errorf("orchestrator: build order-intent event: %w", err)
	}
	if err := o.sink.Emit(ctx, e); err != nil {
		return fmt.Errorf("orchestrator: emit order-intent event: %w", err)
	}

	preSubmit := execution.PreSubmitContext{
		KillSwitchActive: o.killSwitchActive,
		AccountPresent:   true,
		EquityUSD:        equityUSD,
		SessionTradable:  true,
	}

	req := execution.SubmitRequest{
		IntentID:    intentID,
		Direction:   int(result.Direction),
		Contracts:   result.Contracts,
		EntryType:   execution.EntryLimit,
		EntryPrice:  entryPrice,
		StopPrice:   stopPrice,
		TargetPrice: targetPrice,
	}

	if _, err := o.executor.Submit(req, preSubmit); err != nil {
		return fmt.Errorf("orchestrator: submit order: %w", err)
	}
	return nil
}

// orderPrices converts a decision's tick distances into absolute prices
// around the triggering bar's close, the same entry/stop convention
// openInTrade uses to seed the in-trade manager (spec.md §3 order-parent
// contract: entry_price/stop_price/target_price are prices, not ticks).
func (o *Orchestrator) orderPrices(result decision.Result, b bar.Bar) (entryPrice, stopPrice, targetPrice float64) {
	dir := float64(result.Direction)
	entryPrice = b.Close
	stopPrice = entryPrice - dir*float64(result.StopTicks)*o.tickSizeUSD
	targetPrice = entryPrice + dir*float64(result.TargetTicks)*o.tickSizeUSD
	return entryPrice, stopPrice, targetPrice
}

// OnTradeClosed folds a completed trade's outcome back into the
// consecutive-loss counter and the per-strategy quarantine book
// (spec.md §4.9 "Per-strategy throttle/quarantine").
func (o *Orchestrator) OnTradeClosed(templateID string, pnlUSD float64, vol learning.VolRegime, trend learning.TrendRegime, timeOfDay string) {
	o.positionFlat = true
	o.dailyPnLUSD += pnlUSD

	if pnlUSD < 0 {
		o.consecutiveLosses++
	} else {
		o.consecutiveLosses = 0
	}

	key := learning.StrategyKey{TemplateID: templateID, Vol: vol, Trend: trend, TimeOfDay: timeOfDay}
	o.book.Metrics(key).RecordTrade(pnlUSD)
}

// ActivateKillSwitch propagates a kill-switch activation from any source
// (position mismatch, manual operator action, integrity violation) into
// the orchestrator's own gate state.
func (o *Orchestrator) ActivateKillSwitch() { o.killSwitchActive = true }

// ReleaseKillSwitch clears it (sticky switches require explicit release,
// spec.md §7 "User-visible behavior").
func (o *Orchestrator) ReleaseKillSwitch() { o.killSwitchActive = false }
