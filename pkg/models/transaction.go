package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the currency flow of a transaction.
type Direction string

const (
	DirectionNGNToCNY Direction = "ngn_to_cny"
	DirectionCNYToNGN Direction = "cny_to_ngn"
)

// Opposite returns the counterparty direction a matching transaction must have.
func (d Direction) Opposite() Direction {
	if d == DirectionNGNToCNY {
		return DirectionCNYToNGN
	}
	return DirectionNGNToCNY
}

// SourceCurrency returns the currency the trader is paying in for this direction.
func (d Direction) SourceCurrency() string {
	if d == DirectionNGNToCNY {
		return "NGN"
	}
	return "CNY"
}

// Status is a transaction's position in the 12-state lifecycle FSM
// (internal/fsm owns the transition table; this package only defines the
// state vocabulary so it has no dependency on the FSM implementation).
type Status string

const (
	StatusInitiated          Status = "INITIATED"
	StatusFunded             Status = "FUNDED"
	StatusMatching           Status = "MATCHING"
	StatusMatched            Status = "MATCHED"
	StatusPartialMatched     Status = "PARTIAL_MATCHED"
	StatusPendingSettlement  Status = "PENDING_SETTLEMENT"
	StatusSettling           Status = "SETTLING"
	StatusCompleted          Status = "COMPLETED"
	StatusFailed             Status = "FAILED"
	StatusExpired            Status = "EXPIRED"
	StatusCancelled          Status = "CANCELLED"
	StatusRefunded           Status = "REFUNDED"
)

// SettlementMethod tags how a matched/expired transaction is being settled.
type SettlementMethod string

const (
	SettlementMatched         SettlementMethod = "matched"
	SettlementPartialMatched  SettlementMethod = "partial_matched"
	SettlementCIPS            SettlementMethod = "cips_settled"
)

// Transaction is the system of record for a single funded-or-funding
// remittance leg. Pool entries (PoolEntry) are a derived, priority-ordered
// working set and must never be treated as authoritative over this struct.
type Transaction struct {
	ID        string
	Reference string // TXN-XXXXXXXX
	TraderID  string
	Direction Direction

	SourceAmount   decimal.Decimal // 18.2 fixed point, in Direction.SourceCurrency()
	TargetAmount   *decimal.Decimal
	ExchangeRate   *decimal.Decimal // 12.6 fixed point
	FeeAmount      decimal.Decimal
	FeePercentage  decimal.Decimal

	SupplierName      string
	SupplierBank      string
	SupplierAccountEnc []byte

	Status           Status
	MatchID          *string
	SettlementMethod *SettlementMethod

	FundedAt    *time.Time
	MatchedAt   *time.Time
	SettledAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate enforces the invariants checkable without a live FSM.
func (t Transaction) Validate() error {
	if !t.SourceAmount.IsPositive() {
		return ErrNonPositiveAmount
	}
	return nil
}
