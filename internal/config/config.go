// Package config loads and normalizes the frozen document tree (spec.md
// §6 "Configuration") and computes its config_hash.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Root is the frozen tree of normalized documents (spec.md §6
// "Configuration"). It is loaded once at startup and never mutated; the
// learning loop's live parameter state is a separate, explicitly
// read-copy/swap-on-write structure (internal/learning.ParameterState).
type Root struct {
	Constitution     Constitution      `yaml:"constitution"`
	Session          SessionConfig     `yaml:"session"`
	Instrument       Instrument        `yaml:"instrument"`
	DataContract     DataContract      `yaml:"data_contract"`
	ExecutionContract ExecutionContract `yaml:"execution_contract"`
	Templates        []TemplateDoc     `yaml:"templates"`
	RiskModel        RiskModel         `yaml:"risk_model"`
	Observability    Observability     `yaml:"observability"`
	StateContract    StateContract     `yaml:"state_contract"`
	Calendar         Calendar          `yaml:"calendar"`
	InTrade          InTradeConfig     `yaml:"in_trade"`

	// ConfigHash is computed by Normalize, not loaded from disk.
	ConfigHash string `yaml:"-"`
}

// Constitution holds hard, rarely-changed caps (spec.md §4.5 "Effective
// stop", §4.9 "Never-Right Constitution").
type Constitution struct {
	ConstitutionalStopCapTicks int     `yaml:"constitutional_stop_cap_ticks"`
	MaxConfidence              float64 `yaml:"max_confidence"`
	NeutralDecay               float64 `yaml:"neutral_decay"`
}

// SessionConfig names the session-phase boundaries (spec.md §8 "Session-
// phase boundary").
type SessionConfig struct {
	Timezone string            `yaml:"timezone"`
	Phases   []PhaseBoundary   `yaml:"phases"`
}

type PhaseBoundary struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"` // "HH:MM", inclusive
	End   string `yaml:"end"`   // "HH:MM", exclusive
}

// Instrument describes the traded contract's tick economics (spec.md §4.5
// "Effective stop" tick_value term).
type Instrument struct {
	Symbol       string  `yaml:"symbol"`
	TickSize     float64 `yaml:"tick_size"`
	TickValueUSD float64 `yaml:"tick_value_usd"`
}

// DataContract names required signals and data-quality expectations.
type DataContract struct {
	RequiredSignals []string `yaml:"required_signals"`
	DelayedDataMode bool     `yaml:"delayed_data_mode"`
}

// ExecutionContract carries order-lifecycle policy (spec.md §4.6).
type ExecutionContract struct {
	OrderTTLSeconds int      `yaml:"order_ttl_seconds"`
	AllowedEntryTypes []string `yaml:"allowed_entry_types"`
}

// TemplateDoc is one K-template's normalized config document (spec.md
// §4.5, original source's k1_k5_templates.py constants).
type TemplateDoc struct {
	ID                  string  `yaml:"id"`
	ConstraintID        string  `yaml:"constraint_id"`
	Direction           string  `yaml:"direction"`
	ExpectedReturnTicks float64 `yaml:"expected_return_ticks"`
	TargetTicks         int     `yaml:"target_ticks"`
	StopTicks           int     `yaml:"stop_ticks"`
	MinBelief           float64 `yaml:"min_belief"`
	MaxStability        float64 `yaml:"max_stability"`
	Size                int     `yaml:"size"`
	AllowedTiers        []string `yaml:"allowed_tiers"`
}

// RiskModel carries capital-tier boundaries and daily limits.
type RiskModel struct {
	TierBoundariesUSD  []float64 `yaml:"tier_boundaries_usd"`
	TierStopCapsTicks  []int     `yaml:"tier_stop_caps_ticks"`
	MaxDailyTrades     int       `yaml:"max_daily_trades"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
	CooldownBars       int       `yaml:"cooldown_bars"`
	MaxDailyLossUSD    float64   `yaml:"max_daily_loss_usd"`
}

// Observability names logging/metrics sinks (ambient, not a strategy
// concern — spec.md §1 explicitly places the bias/strategy framework out
// of scope, not logging/metrics).
type Observability struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// StateContract names what per-trade/in-trade state is retained and for
// how long (spec.md §4.7 "Recordkeeping").
type StateContract struct {
	RetainInTradeSnapshots bool `yaml:"retain_in_trade_snapshots"`
}

// Calendar holds deduplicated, sorted holiday/half-day lists (spec.md §6
// "Normalization rules").
type Calendar struct {
	Holidays  []string `yaml:"holidays"`   // "YYYY-MM-DD"
	HalfDays  []string `yaml:"half_days"`
}

// InTradeConfig carries the lot split for the per-trade state machine's
// T1/T2/runner fills (spec.md §4.7 "Entry inputs ... From config: lot
// split"). Fractions must sum to 1; they are converted to integer
// contracts per-trade by the orchestrator at entry since qty_total varies
// by tier-sized position.
type InTradeConfig struct {
	LotSplitT1     float64 `yaml:"lot_split_t1"`
	LotSplitT2     float64 `yaml:"lot_split_t2"`
	LotSplitRunner float64 `yaml:"lot_split_runner"`
}

// Load reads and normalizes the config tree rooted at dir, expecting one
// YAML file per document named after its field (constitution.yaml,
// session.yaml, ...).
func Load(dir string) (*Root, error) {
	var root Root
	files := map[string]any{
		"constitution.yaml":       &root.Constitution,
		"session.yaml":            &root.Session,
		"instrument.yaml":         &root.Instrument,
		"data_contract.yaml":      &root.DataContract,
		"execution_contract.yaml": &root.ExecutionContract,
		"templates.yaml":          &root.Templates,
		"risk_model.yaml":         &root.RiskModel,
		"observability.yaml":      &root.Observability,
		"state_contract.yaml":     &root.StateContract,
		"calendar.yaml":           &root.Calendar,
		"in_trade.yaml":           &root.InTrade,
	}

	for name, target := range files {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", name, err)
		}
		if err := yaml.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
	}

	Normalize(&root)
	return &root, nil
}

// Normalize applies the load-time normalization rules (spec.md §6) and
// stamps ConfigHash. It is idempotent: normalizing an already-normalized
// tree produces the same hash (spec.md §8 "Round-trip / idempotence").
func Normalize(r *Root) {
	r.Calendar.Holidays = dedupSortedDates(r.Calendar.Holidays)
	r.Calendar.HalfDays = dedupSortedDates(r.Calendar.HalfDays)

	sort.Slice(r.Templates, func(i, j int) bool { return r.Templates[i].ID < r.Templates[j].ID })
	for i := range r.Templates {
		sort.Strings(r.Templates[i].AllowedTiers)
	}

	sort.Slice(r.Session.Phases, func(i, j int) bool { return r.Session.Phases[i].Start < r.Session.Phases[j].Start })
	sort.Strings(r.DataContract.RequiredSignals)
	sort.Strings(r.ExecutionContract.AllowedEntryTypes)

	r.ConfigHash = computeConfigHash(r)
}

func dedupSortedDates(dates []string) []string {
	seen := make(map[string]bool, len(dates))
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// computeConfigHash is the SHA-256 of canonical JSON of the normalized
// tree (spec.md §6: "a config_hash is the SHA-256 of canonical JSON of
// the normalized tree and appears on every emitted event").
func computeConfigHash(r *Root) string {
	clone := *r
	clone.ConfigHash = ""

	raw, err := json.Marshal(clone)
	if err != nil {
		// Marshal failure here means a programming error in Root's own
		// field types, not a runtime data condition — panicking matches
		// the teacher's "abort on out-of-bound enum / programming
		// error" posture (spec.md §7 "Programming errors").
		panic(fmt.Sprintf("config: marshal normalized tree: %v", err))
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		panic(fmt.Sprintf("config: canonicalize normalized tree: %v", err))
	}
	canon, err := json.Marshal(generic)
	if err != nil {
		panic(fmt.Sprintf("config: re-marshal normalized tree: %v", err))
	}

	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}
