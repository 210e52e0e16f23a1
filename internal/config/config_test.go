package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRoot() Root {
	return Root{
		Calendar: Calendar{
			Holidays: []string{"2026-12-25", "2026-01-01", "2026-01-01"},
			HalfDays: []string{"2026-11-28"},
		},
		Templates: []TemplateDoc{
			{ID: "K2", AllowedTiers: []string{"B", "A"}},
			{ID: "K1", AllowedTiers: []string{"S"}},
		},
		DataContract: DataContract{RequiredSignals: []string{"vwap_z", "atr_14"}},
	}
}

func TestNormalizeDedupesAndSortsHolidays(t *testing.T) {
	r := sampleRoot()
	Normalize(&r)
	assert.Equal(t, []string{"2026-01-01", "2026-12-25"}, r.Calendar.Holidays)
}

func TestNormalizeSortsTemplatesByID(t *testing.T) {
	r := sampleRoot()
	Normalize(&r)
	assert.Equal(t, "K1", r.Templates[0].ID)
	assert.Equal(t, "K2", r.Templates[1].ID)
	assert.Equal(t, []string{"A", "B"}, r.Templates[1].AllowedTiers)
}

func TestNormalizeIsIdempotentOnHash(t *testing.T) {
	r1 := sampleRoot()
	Normalize(&r1)
	hash1 := r1.ConfigHash

	r2 := r1
	r2.ConfigHash = ""
	Normalize(&r2)

	assert.Equal(t, hash1, r2.ConfigHash)
}

func TestConfigHashChangesWithContent(t *testing.T) {
	r1 := sampleRoot()
	Normalize(&r1)

	r2 := sampleRoot()
	r2.RiskModel.MaxDailyTrades = 5
	Normalize(&r2)

	assert.NotEqual(t, r1.ConfigHash, r2.ConfigHash)
}
