// Package fsm implements the transaction lifecycle state machine. The
// transition table is exposed as data (transitions map), not branching
// code, so property tests can enumerate every (from, to) pair exhaustively.
package fsm

import (
	"errors"
	"time"

	"github.com/tradeflow-africa/matching-core/pkg/models"
)

// ErrInvalidTransition is returned whenever a transition is attempted that
// is not present in the table below. This is an internal programming
// error: it aborts the current unit of work and must never be silently
// swallowed.
var ErrInvalidTransition = errors.New("fsm: invalid transition")

// transitions enumerates every legal (from -> to) edge of the 12-state
// machine. Terminal states (COMPLETED, CANCELLED, REFUNDED) have no
// outgoing edges and are simply absent as keys.
var transitions = map[models.Status]map[models.Status]bool{
	models.StatusInitiated: {
		models.StatusFunded:    true,
		models.StatusCancelled: true,
		models.StatusExpired:   true,
	},
	models.StatusFunded: {
		models.StatusMatching:  true,
		models.StatusCancelled: true,
		models.StatusExpired:   true,
	},
	models.StatusMatching: {
		models.StatusMatched:        true,
		models.StatusPartialMatched: true,
		models.StatusExpired:        true,
	},
	models.StatusMatched: {
		models.StatusPendingSettlement: true,
	},
	models.StatusPartialMatched: {
		models.StatusPendingSettlement: true,
		models.StatusMatching:          true,
	},
	models.StatusPendingSettlement: {
		models.StatusSettling: true,
		models.StatusFailed:   true,
	},
	models.StatusSettling: {
		models.StatusCompleted: true,
		models.StatusFailed:    true,
	},
	models.StatusFailed: {
		models.StatusRefunded: true,
	},
	models.StatusExpired: {
		models.StatusRefunded: true,
	},
}

// IsValidTransition reports whether from -> to is a legal edge in the
// table above.
func IsValidTransition(from, to models.Status) bool {
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// AllowedFrom returns every state a transaction in `from` may legally
// move to, for enumeration in property tests.
func AllowedFrom(from models.Status) []models.Status {
	edges, ok := transitions[from]
	if !ok {
		return nil
	}
	out := make([]models.Status, 0, len(edges))
	for to := range edges {
		out = append(out, to)
	}
	return out
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s models.Status) bool {
	_, ok := transitions[s]
	return !ok
}

// TransitionTo validates and applies a state change in place, stamping the
// lifecycle timestamp that belongs to the destination state: FUNDED ->
// FundedAt, MATCHED/PARTIAL_MATCHED -> MatchedAt, COMPLETED -> SettledAt.
// Returns ErrInvalidTransition (wrapped with the offending pair) without
// mutating txn if the edge does not exist.
func TransitionTo(txn *models.Transaction, to models.Status, now time.Time) error {
	if !IsValidTransition(txn.Status, to) {
		return &InvalidTransitionError{From: txn.Status, To: to}
	}

	txn.Status = to
	switch to {
	case models.StatusFunded:
		txn.FundedAt = &now
	case models.StatusMatched, models.StatusPartialMatched:
		txn.MatchedAt = &now
	case models.StatusCompleted:
		txn.SettledAt = &now
	}
	txn.UpdatedAt = now
	return nil
}

// InvalidTransitionError carries the offending states for diagnostics
// while still satisfying errors.Is(err, ErrInvalidTransition).
type InvalidTransitionError struct {
	From models.Status
	To   models.Status
}

func (e *InvalidTransitionError) Error() string {
	return "fsm: cannot transition from " + string(e.From) + " to " + string(e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
