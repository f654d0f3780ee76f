package ed25519

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/ledger/types"
)

// EncodingError reports that the data could not be encoded for
// verification. It points at a bug in the caller, not at a bad
// signature.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("signature verification failed to encode the data: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// IsEncodingError reports whether err is an EncodingError.
func IsEncodingError(err error) bool {
	var ee *EncodingError
	return errors.As(err, &ee)
}

// VerifySignatureRaw checks sig over data.
func VerifySignatureRaw(pk PublicKey, data []byte, sig Signature) error {
	if !ed25519.Verify(pk[:], data, sig[:]) {
		return ErrSigMismatch
	}
	return nil
}

// VerifySignature checks sig over the cramberry encoding of v.
func VerifySignature(pk PublicKey, v any, sig Signature) error {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return &EncodingError{Err: err}
	}
	return VerifySignatureRaw(pk, data, sig)
}

// SignedTxData replaces the data of a signed transaction. The
// signature covers the encoding of the transaction as it was before
// the replacement.
type SignedTxData struct {
	Data []byte `cramberry:"1"`
	Sig  []byte `cramberry:"2"`
}

// DecodeSignedTxData decodes the data of a signed transaction.
func DecodeSignedTxData(b []byte) (SignedTxData, error) {
	var s SignedTxData
	if err := cramberry.Unmarshal(b, &s); err != nil {
		return SignedTxData{}, fmt.Errorf("decode signed tx data: %w", err)
	}
	return s, nil
}

// SignTx signs the encoding of tx and returns tx with its data
// replaced by the SignedTxData.
func SignTx(k Keypair, tx types.Transaction) (types.Transaction, error) {
	toSign, err := tx.Encode()
	if err != nil {
		return types.Transaction{}, fmt.Errorf("encode tx: %w", err)
	}
	sig := Sign(k, toSign)
	signed, err := cramberry.Marshal(SignedTxData{Data: tx.Data, Sig: sig.Bytes()})
	if err != nil {
		return types.Transaction{}, fmt.Errorf("encode signed tx data: %w", err)
	}
	tx.Data = signed
	return tx, nil
}

// VerifyTxSig checks that sig was produced by pk over tx as it was
// before SignTx replaced its data.
func VerifyTxSig(pk PublicKey, tx types.Transaction, sig Signature) error {
	signed, err := DecodeSignedTxData(tx.Data)
	if err != nil {
		return &EncodingError{Err: err}
	}
	tx.Data = signed.Data
	data, err := tx.Encode()
	if err != nil {
		return &EncodingError{Err: err}
	}
	return VerifySignatureRaw(pk, data, sig)
}

// VerifySignedTx checks the signature carried inside a signed tx.
func VerifySignedTx(pk PublicKey, tx types.Transaction) error {
	signed, err := DecodeSignedTxData(tx.Data)
	if err != nil {
		return &EncodingError{Err: err}
	}
	sig, err := SignatureFromBytes(signed.Sig)
	if err != nil {
		return &EncodingError{Err: err}
	}
	return VerifyTxSig(pk, tx, sig)
}
