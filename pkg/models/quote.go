package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is an ephemeral FX quote. It is never persisted to Postgres — only
// cached in Redis by internal/rates under quote:<id> for the engine's
// quote TTL (60s by default).
type Quote struct {
	ID               string // QT-<12 hex>
	SourceCurrency   string
	TargetCurrency   string
	SourceAmount     decimal.Decimal
	TargetAmount     decimal.Decimal
	MidMarketRate    decimal.Decimal
	EffectiveRate    decimal.Decimal
	FeeTierLabel     string
	FeePercentage    decimal.Decimal
	FeeAmount        decimal.Decimal
	TotalCost        decimal.Decimal
	SavingsVsBank    decimal.Decimal
	ValidUntil       time.Time
}
