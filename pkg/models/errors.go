package models

import "errors"

var (
	ErrInvalidKYCTier       = errors.New("models: kyc_tier must be 1, 2, or 3")
	ErrMonthlyLimitExceeded = errors.New("models: monthly_used exceeds monthly_limit")
	ErrNonPositiveAmount    = errors.New("models: source_amount must be positive")
	ErrPoolEntryExpiry      = errors.New("models: expires_at must be after entered_pool_at")
)
