package nova

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// NativeCurrency is the ledger's own token, used wherever a currency is
// left unspecified.
const NativeCurrency = "NOVA"

var currencyShape = regexp.MustCompile(`^[A-Z0-9]{1,12}$`)

// Amount is a monetary value in atomic units of a currency. Values are
// integers end to end; nothing in this package ever represents money as a
// float.
type Amount struct {
	Value    uint64 `json:"value"`
	Currency string `json:"currency"`
}

// NewAmount normalizes the currency ticker to upper-case and validates its
// shape (1 to 12 characters, A-Z and 0-9).
func NewAmount(value uint64, currency string) (amount Amount, err error) {
	normalized := strings.ToUpper(strings.TrimSpace(currency))
	if !currencyShape.MatchString(normalized) {
		err = errors.Wrapf(ErrInvalidCurrency, "'%s'", currency)
		return
	}

	amount = Amount{Value: value, Currency: normalized}
	return
}

func (a Amount) Validate() (err error) {
	if !currencyShape.MatchString(a.Currency) {
		err = errors.Wrapf(ErrInvalidCurrency, "'%s'", a.Currency)
	}
	return
}

func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Value, a.Currency)
}
