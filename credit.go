package nova

import (
	"encoding/json"
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CreditLineStatus is the lifecycle state of a credit line. Transitions are
// one-way except Frozen, which the provider can thaw back to Active.
type CreditLineStatus string

const (
	CreditActive    CreditLineStatus = "Active"
	CreditFrozen    CreditLineStatus = "Frozen"
	CreditClosed    CreditLineStatus = "Closed"
	CreditDefaulted CreditLineStatus = "Defaulted"
)

func (s CreditLineStatus) Valid() bool {
	switch s {
	case CreditActive, CreditFrozen, CreditClosed, CreditDefaulted:
		return true
	}
	return false
}

// AllowsDraws reports whether new draws are accepted in this state.
func (s CreditLineStatus) AllowsDraws() bool {
	return s == CreditActive
}

// AllowsRepayments reports whether repayments are accepted in this state.
// Defaulted lines still take repayments, closed lines are settled.
func (s CreditLineStatus) AllowsRepayments() bool {
	return s == CreditActive || s == CreditFrozen || s == CreditDefaulted
}

// Terminal reports whether the state admits no further transitions.
func (s CreditLineStatus) Terminal() bool {
	return s == CreditClosed || s == CreditDefaulted
}

// CreditTerms is the JSON payload schema carried by CreditRequest
// transactions. Amounts are in the smallest currency unit.
type CreditTerms struct {
	Limit       uint64 `json:"limit"`
	Currency    string `json:"currency"`
	InterestBps uint32 `json:"interest_bps"`
	TermDays    uint32 `json:"term_days"`
}

// Bytes encodes the terms as a transaction payload.
func (t CreditTerms) Bytes() (out []byte, err error) {
	if t.Limit == 0 {
		err = errors.Wrap(ErrMissingField, "limit")
		return
	}
	if _, err = NewAmount(t.Limit, t.Currency); err != nil {
		return
	}
	out, err = json.Marshal(t)
	err = errors.WithStack(err)
	return
}

// ParseCreditTerms decodes a CreditRequest transaction payload.
func ParseCreditTerms(payload []byte) (terms *CreditTerms, err error) {
	terms = &CreditTerms{}
	if err = json.Unmarshal(payload, terms); err != nil {
		err = errors.Wrap(err, "invalid credit terms payload")
		return
	}
	if _, err = NewAmount(terms.Limit, terms.Currency); err != nil {
		return
	}
	return
}

// CreditOffer mirrors the offer objects lenders publish on the network.
type CreditOffer struct {
	OfferID     string    `json:"offer_id"`
	Lender      string    `json:"lender"`
	Borrower    string    `json:"borrower"`
	Currency    string    `json:"currency"`
	Limit       uint64    `json:"limit"`
	InterestBps uint32    `json:"interest_bps"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CreditLine is a single provider/borrower credit arrangement. Amounts are
// in the smallest unit of Currency, rates in annual basis points.
type CreditLine struct {
	ID          string           `json:"id"`
	Provider    string           `json:"provider"`
	Borrower    string           `json:"borrower"`
	Currency    string           `json:"currency"`
	Limit       uint64           `json:"limit"`
	Used        uint64           `json:"used"`
	InterestBps uint32           `json:"interest_bps"`
	TermDays    uint32           `json:"term_days"`
	CreatedAt   time.Time        `json:"created_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Status      CreditLineStatus `json:"status"`
}

// NewCreditLine opens an active line from provider to borrower expiring
// termDays from now.
func NewCreditLine(provider, borrower, currency string, limit uint64, interestBps, termDays uint32) (line *CreditLine, err error) {
	if _, err = NewAmount(limit, currency); err != nil {
		return
	}
	now := time.Now().UTC()
	line = &CreditLine{
		ID:          uuid.NewString(),
		Provider:    provider,
		Borrower:    borrower,
		Currency:    currency,
		Limit:       limit,
		Used:        0,
		InterestBps: interestBps,
		TermDays:    termDays,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(termDays) * 24 * time.Hour),
		Status:      CreditActive,
	}
	return
}

// Available returns the amount still drawable, zero when the status blocks
// draws.
func (l *CreditLine) Available() uint64 {
	if !l.Status.AllowsDraws() {
		return 0
	}
	if l.Used > l.Limit {
		return 0
	}
	return l.Limit - l.Used
}

// UtilizationPct returns used/limit as a 0-100 percentage.
func (l *CreditLine) UtilizationPct() float64 {
	if l.Limit == 0 {
		return 0
	}
	return float64(l.Used) / float64(l.Limit) * 100
}

// Expired reports whether the line has passed its expiry time.
func (l *CreditLine) Expired() bool {
	return time.Now().After(l.ExpiresAt)
}

// RateDisplay formats the contractual rate, e.g. 500 bps -> "5.00%".
func (l *CreditLine) RateDisplay() string {
	return fmt.Sprintf("%.2f%%", float64(l.InterestBps)/100)
}

// Draw borrows against the line and returns the credit remaining after the
// draw. A failed draw leaves the line unchanged.
func (l *CreditLine) Draw(amount uint64) (available uint64, err error) {
	if !l.Status.AllowsDraws() {
		err = errors.Wrapf(ErrCreditNotActive, "line %s is %s", l.ID, l.Status)
		return
	}
	if l.Expired() {
		err = errors.Wrapf(ErrCreditExpired, "line %s expired at %s", l.ID, l.ExpiresAt.Format(time.RFC3339))
		return
	}
	if avail := l.Available(); amount > avail {
		err = errors.Wrapf(ErrCreditLimitExceeded, "requested %d, available %d", amount, avail)
		return
	}
	l.Used += amount
	available = l.Available()
	return
}

// Repay reduces the outstanding balance and returns what remains owed.
// Repayments are accepted in every state except Closed.
func (l *CreditLine) Repay(amount uint64) (outstanding uint64, err error) {
	if l.Status == CreditClosed {
		err = errors.Wrapf(ErrCreditClosed, "line %s", l.ID)
		return
	}
	if amount > l.Used {
		err = errors.Wrapf(ErrCreditOverRepayment, "repaying %d, outstanding %d", amount, l.Used)
		return
	}
	l.Used -= amount
	outstanding = l.Used
	return
}

// Freeze suspends new draws. Repayments continue to be accepted.
func (l *CreditLine) Freeze() (err error) {
	if l.Status.Terminal() {
		return errors.Wrapf(ErrCreditClosed, "line %s is %s", l.ID, l.Status)
	}
	l.Status = CreditFrozen
	return
}

// Unfreeze returns a frozen line to active.
func (l *CreditLine) Unfreeze() (err error) {
	if l.Status != CreditFrozen {
		return errors.Wrapf(ErrCreditNotActive, "cannot unfreeze line %s from %s", l.ID, l.Status)
	}
	l.Status = CreditActive
	return
}

// Close permanently settles the line. Any outstanding balance should be
// repaid before closing.
func (l *CreditLine) Close() (err error) {
	if l.Status == CreditClosed {
		return errors.Wrapf(ErrCreditClosed, "line %s", l.ID)
	}
	l.Status = CreditClosed
	return
}

// MarkDefaulted moves the line to the defaulted terminal state after a
// missed deadline or terms violation.
func (l *CreditLine) MarkDefaulted() (err error) {
	if l.Status.Terminal() {
		return errors.Wrapf(ErrCreditClosed, "line %s is %s", l.ID, l.Status)
	}
	l.Status = CreditDefaulted
	return
}

// AccruedInterest computes simple interest on principal at an annual rate of
// bps basis points over the given number of days, rounded down. The
// intermediate product is kept in 128 bits so large principals cannot
// overflow; results beyond uint64 saturate.
func AccruedInterest(principal uint64, bps uint32, days uint32) uint64 {
	const denom = 10_000 * 365
	hi, lo := bits.Mul64(principal, uint64(bps)*uint64(days))
	if hi >= denom {
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, denom)
	return quo
}
