package priority

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/tradeflow-africa/matching-core/pkg/models"
)

func TestScore_Range(t *testing.T) {
	cases := []struct {
		name   string
		hours  float64
		amount int64
		tier   models.KYCTier
	}{
		{"zero everything", 0, 0, models.KYCTierUnknown},
		{"max everything tier3", 1000, 10_000_000, models.KYCTier3},
		{"mid tier1", 12, 50_000, models.KYCTier1},
		{"negative hours clamped", -5, 1000, models.KYCTier2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Score(c.hours, decimal.NewFromInt(c.amount), c.tier)
			if got < 0 || got > 100 {
				t.Errorf("Score() = %v, want value in [0, 100]", got)
			}
		})
	}
}

func TestScore_KnownFormula(t *testing.T) {
	// age=24h (score 100), amount=$50,000 (score 50), tier=2 (score 60)
	// priority = 0.40*100 + 0.35*50 + 0.25*60 = 40 + 17.5 + 15 = 72.5
	got := Score(24, decimal.NewFromInt(50_000), models.KYCTier2)
	want := 72.5
	if diff := got - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("Score() = %v, want %v", got, want)
	}
}

func TestScore_AgeClampedAt24Hours(t *testing.T) {
	at24 := Score(24, decimal.NewFromInt(1000), models.KYCTier1)
	at48 := Score(48, decimal.NewFromInt(1000), models.KYCTier1)
	if at24 != at48 {
		t.Errorf("expected age score to clamp at 24h: Score(24)=%v, Score(48)=%v", at24, at48)
	}
}

func TestScore_AmountClampedAt100k(t *testing.T) {
	at100k := Score(1, decimal.NewFromInt(100_000), models.KYCTier1)
	at1m := Score(1, decimal.NewFromInt(1_000_000), models.KYCTier1)
	if at100k != at1m {
		t.Errorf("expected amount score to clamp at $100k: Score(100k)=%v, Score(1M)=%v", at100k, at1m)
	}
}

func TestScore_UnknownTierScoresZeroContribution(t *testing.T) {
	withUnknown := Score(0, decimal.Zero, models.KYCTierUnknown)
	if withUnknown != 0 {
		t.Errorf("expected zero score for zero age/amount/unknown tier, got %v", withUnknown)
	}
}

func TestScore_WeightsSumToOne(t *testing.T) {
	// At full saturation every factor is 100, so priority should be exactly 100.
	got := Score(1000, decimal.NewFromInt(10_000_000), models.KYCTier3)
	if got != 100 {
		t.Errorf("expected fully-saturated score of 100, got %v", got)
	}
}
