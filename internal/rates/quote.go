package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/internal/money"
	"github.com/tradeflow-africa/matching-core/pkg/models"
)

var (
	tierPlatinum = decimal.NewFromFloat(0.75)
	tierGold     = decimal.NewFromFloat(1.00)
	tierSilver   = decimal.NewFromFloat(1.50)
	tierStandard = decimal.NewFromFloat(2.00)

	bankComparisonMarkup = decimal.NewFromInt(5)
)

// FeeTier returns the fee-tier label and percentage for a trader's
// trailing monthly USD volume. Thresholds are evaluated highest-first.
func FeeTier(monthlyVolumeUSD decimal.Decimal) (label string, percent decimal.Decimal) {
	switch {
	case monthlyVolumeUSD.GreaterThanOrEqual(decimal.NewFromInt(500_000)):
		return "platinum", tierPlatinum
	case monthlyVolumeUSD.GreaterThanOrEqual(decimal.NewFromInt(200_000)):
		return "gold", tierGold
	case monthlyVolumeUSD.GreaterThanOrEqual(decimal.NewFromInt(50_000)):
		return "silver", tierSilver
	default:
		return "standard", tierStandard
	}
}

// Quote mints an ephemeral FX quote for a source/target currency pair and
// amount, given the trader's trailing monthly USD volume (which decides
// the fee tier). It fails with ErrCircuitBreakerOpen while the volatility
// breaker is tripped and ErrUnsupportedPair for anything but NGN<->CNY.
func (e *Engine) Quote(ctx context.Context, sourceCurrency, targetCurrency string, amount, monthlyVolumeUSD decimal.Decimal) (*models.Quote, error) {
	if !isSupportedPair(sourceCurrency, targetCurrency) {
		return nil, ErrUnsupportedPair
	}

	current, err := e.GetRates(ctx)
	if err != nil {
		return nil, err
	}

	midRate, minFee := crossRateAndMinFee(current.NGNPerCNY, sourceCurrency)

	label, pct := FeeTier(monthlyVolumeUSD)
	fee := money.Max(money.PercentOf(amount, pct), minFee)
	fee = money.RoundAmount(fee)

	targetAmount := money.RoundAmount(amount.Mul(midRate))
	totalCost := amount.Add(fee)

	effectiveRate := midRate
	if !totalCost.IsZero() {
		effectiveRate = money.RoundHalfUp(targetAmount.Div(totalCost), money.QuotedRate)
	}

	bankEquivalentFee := money.PercentOf(amount, bankComparisonMarkup)
	savings := bankEquivalentFee.Sub(fee)
	if savings.IsNegative() {
		savings = decimal.Zero
	}

	quote := &models.Quote{
		ID:             "QT-" + quoteSuffix(),
		SourceCurrency: sourceCurrency,
		TargetCurrency: targetCurrency,
		SourceAmount:   amount,
		TargetAmount:   targetAmount,
		MidMarketRate:  midRate,
		EffectiveRate:  effectiveRate,
		FeeTierLabel:   label,
		FeePercentage:  pct,
		FeeAmount:      fee,
		TotalCost:      totalCost,
		SavingsVsBank:  savings,
		ValidUntil:     e.now().Add(e.quoteTTL),
	}

	if err := e.storeQuote(ctx, quote); err != nil {
		return nil, err
	}

	return quote, nil
}

func isSupportedPair(source, target string) bool {
	return (source == "NGN" && target == "CNY") || (source == "CNY" && target == "NGN")
}

// crossRateAndMinFee returns the mid-market rate and minimum fee floor,
// both expressed in the source currency. ngnPerCNY is "how many NGN for
// one CNY".
func crossRateAndMinFee(ngnPerCNY decimal.Decimal, sourceCurrency string) (rate, minFee decimal.Decimal) {
	if sourceCurrency == "NGN" {
		if ngnPerCNY.IsZero() {
			return decimal.Zero, decimal.NewFromInt(minFeeNGN)
		}
		return money.RoundHalfUp(decimal.NewFromInt(1).Div(ngnPerCNY), money.QuotedRate), decimal.NewFromInt(minFeeNGN)
	}
	// CNY -> NGN: rate is NGN per CNY directly; the floor fee converts
	// from its NGN definition into CNY at the current cross-rate.
	minFeeCNY := decimal.Zero
	if !ngnPerCNY.IsZero() {
		minFeeCNY = money.RoundAmount(decimal.NewFromInt(minFeeNGN).Div(ngnPerCNY))
	}
	return ngnPerCNY, minFeeCNY
}

func (e *Engine) storeQuote(ctx context.Context, q *models.Quote) error {
	raw, err := json.Marshal(quoteDTO{
		ID:             q.ID,
		SourceCurrency: q.SourceCurrency,
		TargetCurrency: q.TargetCurrency,
		SourceAmount:   q.SourceAmount.String(),
		TargetAmount:   q.TargetAmount.String(),
		MidMarketRate:  q.MidMarketRate.String(),
		EffectiveRate:  q.EffectiveRate.String(),
		FeeTierLabel:   q.FeeTierLabel,
		FeePercentage:  q.FeePercentage.String(),
		FeeAmount:      q.FeeAmount.String(),
		TotalCost:      q.TotalCost.String(),
		SavingsVsBank:  q.SavingsVsBank.String(),
		ValidUntil:     q.ValidUntil,
	})
	if err != nil {
		return fmt.Errorf("rates: marshal quote: %w", err)
	}
	if err := e.rdb.Set(ctx, "quote:"+q.ID, raw, e.quoteTTL).Err(); err != nil {
		return fmt.Errorf("rates: store quote: %w", err)
	}
	return nil
}

type quoteDTO struct {
	ID             string    `json:"id"`
	SourceCurrency string    `json:"source_currency"`
	TargetCurrency string    `json:"target_currency"`
	SourceAmount   string    `json:"source_amount"`
	TargetAmount   string    `json:"target_amount"`
	MidMarketRate  string    `json:"mid_market_rate"`
	EffectiveRate  string    `json:"effective_rate"`
	FeeTierLabel   string    `json:"fee_tier_label"`
	FeePercentage  string    `json:"fee_percentage"`
	FeeAmount      string    `json:"fee_amount"`
	TotalCost      string    `json:"total_cost"`
	SavingsVsBank  string    `json:"savings_vs_bank"`
	ValidUntil     time.Time `json:"valid_until"`
}

// quoteSuffix returns 12 hex characters from a fresh UUID, matching the
// reference-ID style used elsewhere in this service.
func quoteSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
