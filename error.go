package nova

import (
	"fmt"
)

var (
	ErrInvalidSeedLength      = fmt.Errorf("seed must be exactly 32 bytes")
	ErrInvalidKeyLength       = fmt.Errorf("public key must be exactly 32 bytes")
	ErrInvalidPublicKey       = fmt.Errorf("public key is not a valid curve point")
	ErrInvalidSignatureLength = fmt.Errorf("signature must be exactly 64 bytes")
	ErrMalformedAddress       = fmt.Errorf("malformed address")
	ErrUnexpectedPrefix       = fmt.Errorf("unexpected address prefix")
	ErrMissingField           = fmt.Errorf("missing required field")
	ErrInvalidCurrency        = fmt.Errorf("invalid currency ticker")
	ErrUnknownTxType          = fmt.Errorf("unknown transaction type")
	ErrTruncatedTransaction   = fmt.Errorf("truncated transaction bytes")
	ErrTrailingBytes          = fmt.Errorf("trailing bytes after transaction")
	ErrBlockNotFound          = fmt.Errorf("block not found")
	ErrTransactionNotFound    = fmt.Errorf("transaction not found")
	ErrAccountNotFound        = fmt.Errorf("account not found")
	ErrReceiptNotFound        = fmt.Errorf("receipt not found")
	ErrSettingNotFound        = fmt.Errorf("setting not found")
	ErrKeystoreDecrypt        = fmt.Errorf("keystore decrypt failed: wrong passphrase or corrupted file")
	ErrKeystoreVersion        = fmt.Errorf("unsupported keystore version")
	ErrThresholdTooLow        = fmt.Errorf("share threshold must be at least 2")
	ErrNotEnoughShares        = fmt.Errorf("not enough shares")
	ErrTooManyShares          = fmt.Errorf("cannot create more than 255 shares")
	ErrEmptySecret            = fmt.Errorf("secret must not be empty")
	ErrShareMismatch          = fmt.Errorf("share data lengths are inconsistent")
	ErrDuplicateShare         = fmt.Errorf("duplicate share index")
	ErrInvalidMnemonic        = fmt.Errorf("invalid mnemonic phrase")
	ErrNetworkInvalid         = fmt.Errorf("invalid network")
	ErrWalletLocked           = fmt.Errorf("wallet secret has been destroyed")
	ErrReceiptIncomplete      = fmt.Errorf("receipt is missing a countersignature")
	ErrReceiptSignature       = fmt.Errorf("receipt signature invalid")
	ErrCreditNotActive        = fmt.Errorf("credit line is not active")
	ErrCreditExpired          = fmt.Errorf("credit line has expired")
	ErrCreditLimitExceeded    = fmt.Errorf("draw exceeds available credit")
	ErrCreditOverRepayment    = fmt.Errorf("repayment exceeds outstanding balance")
	ErrCreditClosed           = fmt.Errorf("credit line already closed")
)

// AllErrors lets wire-level consumers map an error string reported by a
// remote peer back onto the matching sentinel.
var AllErrors = []error{
	ErrInvalidSeedLength,
	ErrInvalidKeyLength,
	ErrInvalidPublicKey,
	ErrInvalidSignatureLength,
	ErrMalformedAddress,
	ErrUnexpectedPrefix,
	ErrMissingField,
	ErrInvalidCurrency,
	ErrUnknownTxType,
	ErrTruncatedTransaction,
	ErrTrailingBytes,
	ErrBlockNotFound,
	ErrTransactionNotFound,
	ErrAccountNotFound,
	ErrReceiptNotFound,
	ErrNetworkInvalid,
}
