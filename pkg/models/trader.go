package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYCTier is a trader's verification level. Tier gates the monthly USD
// transaction limit and contributes to pool priority scoring.
type KYCTier int

const (
	KYCTierUnknown KYCTier = 0
	KYCTier1       KYCTier = 1
	KYCTier2       KYCTier = 2
	KYCTier3       KYCTier = 3
)

// MonthlyLimitUSD returns the tier-driven monthly transaction limit.
// Tier 0 (unverified) carries no limit entitlement — callers must reject
// transaction creation for unknown tiers upstream of this package.
func (t KYCTier) MonthlyLimitUSD() decimal.Decimal {
	switch t {
	case KYCTier1:
		return decimal.NewFromInt(5_000)
	case KYCTier2:
		return decimal.NewFromInt(50_000)
	case KYCTier3:
		return decimal.NewFromInt(500_000)
	default:
		return decimal.Zero
	}
}

// AccountStatus tracks a trader's account lifecycle, independent of the
// transaction FSM.
type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBlocked   AccountStatus = "blocked"
)

// Trader is the identity and limit-tracking record for a B2B remittance
// counterparty. BVN/NIN are stored only in their AES-GCM-encrypted form
// (see internal/security); the PIN is stored pre-hashed by an onboarding
// service upstream of this core.
type Trader struct {
	ID                string
	BusinessName      string
	KYCTier           KYCTier
	MonthlyLimitUSD   decimal.Decimal
	MonthlyUsedUSD    decimal.Decimal
	HashedPIN         string
	AccountStatus     AccountStatus
	EncryptedBVN      []byte
	CompletedTxnCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RemainingLimitUSD returns the headroom left this month, clamped at zero.
func (t Trader) RemainingLimitUSD() decimal.Decimal {
	rem := t.MonthlyLimitUSD.Sub(t.MonthlyUsedUSD)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Validate enforces that monthly usage never exceeds the limit and that
// the KYC tier is one of the three recognized values.
func (t Trader) Validate() error {
	if t.KYCTier != KYCTier1 && t.KYCTier != KYCTier2 && t.KYCTier != KYCTier3 {
		return ErrInvalidKYCTier
	}
	if t.MonthlyUsedUSD.GreaterThan(t.MonthlyLimitUSD) {
		return ErrMonthlyLimitExceeded
	}
	return nil
}
