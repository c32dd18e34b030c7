package staking

import (
	"errors"
	"fmt"
)

// Sentinel errors for argument-less conditions, following the
// package-level var block style (txs/executor/standard_tx_executor.go).
var (
	ErrZeroAmount       = errors.New("staking: amount must be positive")
	ErrUnknownStake     = errors.New("staking: unknown stake")
	ErrUnknownTx        = errors.New("staking: unknown tx")
	ErrWrongTxKind      = errors.New("staking: tx is not the expected kind")
	ErrNoStake          = errors.New("staking: distribution has no stake to divide rewards across")
	ErrUnknownValidator = errors.New("staking: unknown or inactive validator")
	ErrUnauthorized     = errors.New("staking: caller is not the authorized vault endpoint")
)

// ErrInvalidDenom reports a denomination mismatch on a token flow.
type ErrInvalidDenom struct {
	Expected string
	Got      string
}

func (e *ErrInvalidDenom) Error() string {
	return fmt.Sprintf("staking: invalid denom: expected %q, got %q", e.Expected, e.Got)
}

// ErrInsufficientStake reports that an unstake exceeds the stake's
// optimistic high bound.
type ErrInsufficientStake struct {
	Have uint64
}

func (e *ErrInsufficientStake) Error() string {
	return fmt.Sprintf("staking: insufficient stake: have %d", e.Have)
}
