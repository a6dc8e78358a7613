package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchType identifies which of the three matcher passes produced a Match.
type MatchType string

const (
	MatchTypeExact   MatchType = "exact"
	MatchTypeMulti   MatchType = "multi"
	MatchTypePartial MatchType = "partial"
)

// MatchStatus tracks a Match record through settlement. Settlement
// execution itself happens in a downstream system — this core only
// records the handoff from PENDING_SETTLEMENT onward.
type MatchStatus string

const (
	MatchPendingSettlement MatchStatus = "pending_settlement"
	MatchSettling          MatchStatus = "settling"
	MatchSettled           MatchStatus = "settled"
	MatchFailed            MatchStatus = "failed"
)

// Match is one successful pairing produced by a matching cycle. A
// multi-leg match produces N Match rows sharing CycleID; exact/partial
// matches produce exactly one.
type Match struct {
	ID          string
	CycleID     string // MC-YYYYMMDD-HHMM
	BuyTxnID    string
	SellTxnID   string
	MatchType   MatchType
	MatchedAmount decimal.Decimal
	MatchedRate   decimal.Decimal
	Status        MatchStatus
	MatchedAt     time.Time

	SettlementReference *string
	SettledAt           *time.Time
}
