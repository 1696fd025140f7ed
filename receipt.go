package nova

import (
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// HexBytes is a byte slice that travels as a lowercase hex string in JSON,
// the same convention submission envelopes use for signatures and keys.
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(in []byte) (err error) {
	var s string
	if err = json.Unmarshal(in, &s); err != nil {
		return errors.WithStack(err)
	}
	out, err := hex.DecodeString(s)
	if err != nil {
		return errors.WithStack(err)
	}
	*h = out
	return
}

// PaymentReceipt is an off-chain settlement receipt for a confirmed
// on-chain payment. The sender issues and signs it, the receiver
// countersigns, and either party can hand the dual-signed receipt to a
// third party as proof of settlement.
type PaymentReceipt struct {
	ReceiptID      string   `json:"receipt_id"`
	SessionID      string   `json:"session_id"`
	TxHash         string   `json:"transaction_hash"`
	BlockHeight    uint64   `json:"block_height"`
	Sender         string   `json:"sender"`
	SenderPubKey   HexBytes `json:"sender_pubkey"`
	Receiver       string   `json:"receiver"`
	ReceiverPubKey HexBytes `json:"receiver_pubkey"`
	Amount         uint64   `json:"amount"`
	Currency       string   `json:"currency"`
	Timestamp      uint64   `json:"timestamp"`
	SenderSig      HexBytes `json:"sender_signature,omitempty"`
	ReceiverSig    HexBytes `json:"receiver_signature,omitempty"`
}

// NewPaymentReceipt issues a receipt for a settled payment and signs it with
// the sender's key. timestamp is the settlement block time in unix
// milliseconds.
func NewPaymentReceipt(sessionID, txHash string, blockHeight uint64, receiver string, receiverPubKey []byte, amount Amount, timestamp uint64, sender *KeyPair) (r *PaymentReceipt, err error) {
	if sender == nil {
		err = errors.Wrap(ErrMissingField, "sender keypair")
		return
	}
	if err = amount.Validate(); err != nil {
		return
	}
	if _, err = PublicKeyFromBytes(receiverPubKey); err != nil {
		return
	}
	senderAddr, err := sender.AddressString()
	if err != nil {
		return
	}
	r = &PaymentReceipt{
		ReceiptID:      uuid.NewString(),
		SessionID:      sessionID,
		TxHash:         txHash,
		BlockHeight:    blockHeight,
		Sender:         senderAddr,
		SenderPubKey:   sender.PublicKey(),
		Receiver:       receiver,
		ReceiverPubKey: append(HexBytes(nil), receiverPubKey...),
		Amount:         amount.Value,
		Currency:       amount.Currency,
		Timestamp:      timestamp,
	}
	r.SenderSig = sender.Sign(r.SigningPayload())
	return
}

// SigningPayload is the canonical byte string both parties sign. The
// signature fields are excluded to avoid circularity.
func (r *PaymentReceipt) SigningPayload() []byte {
	return []byte(strings.Join([]string{
		r.ReceiptID,
		r.SessionID,
		r.TxHash,
		strconv.FormatUint(r.BlockHeight, 10),
		r.Sender,
		r.Receiver,
		strconv.FormatUint(r.Amount, 10),
		r.Currency,
		strconv.FormatUint(r.Timestamp, 10),
		hex.EncodeToString(r.SenderPubKey),
	}, ":"))
}

// Countersign checks the sender's signature and, if it holds, attaches the
// receiver's. After this the receipt is fully signed.
func (r *PaymentReceipt) Countersign(receiver *KeyPair) (err error) {
	if receiver == nil {
		return errors.Wrap(ErrMissingField, "receiver keypair")
	}
	if len(r.SenderSig) == 0 {
		return errors.Wrap(ErrReceiptIncomplete, "sender signature missing")
	}
	payload := r.SigningPayload()
	if !Verify(r.SenderPubKey, payload, r.SenderSig) {
		return errors.Wrap(ErrReceiptSignature, "sender")
	}
	r.ReceiverSig = receiver.Sign(payload)
	return
}

// Complete reports whether both parties have signed.
func (r *PaymentReceipt) Complete() bool {
	return len(r.SenderSig) > 0 && len(r.ReceiverSig) > 0
}

// Verify checks both signatures against the canonical payload.
func (r *PaymentReceipt) Verify() (err error) {
	if len(r.SenderSig) == 0 {
		return errors.Wrap(ErrReceiptIncomplete, "sender signature missing")
	}
	if len(r.ReceiverSig) == 0 {
		return errors.Wrap(ErrReceiptIncomplete, "receiver signature missing")
	}
	payload := r.SigningPayload()
	if !Verify(r.SenderPubKey, payload, r.SenderSig) {
		return errors.Wrap(ErrReceiptSignature, "sender")
	}
	if !Verify(r.ReceiverPubKey, payload, r.ReceiverSig) {
		return errors.Wrap(ErrReceiptSignature, "receiver")
	}
	return
}
