package ledger

import (
	"fmt"

	"github.com/Peersyst/xrpl-go/xrpl/hash"
	"github.com/Peersyst/xrpl-go/xrpl/transaction"
	"github.com/Peersyst/xrpl-go/xrpl/transaction/types"
)

func issued(a IssuedAmount) (types.IssuedCurrencyAmount, error) {
	currency, err := CurrencyWireCode(a.Currency)
	if err != nil {
		return types.IssuedCurrencyAmount{}, err
	}
	if !IsValidAddress(a.Issuer) {
		return types.IssuedCurrencyAmount{}, fmt.Errorf("%w: issuer %q", ErrInvalidAddress, a.Issuer)
	}
	return types.IssuedCurrencyAmount{Issuer: types.Address(a.Issuer), Currency: currency, Value: a.Value}, nil
}

// flatten converts tx into the field map the binary codec serializes.
func flatten(tx *Transaction) (transaction.FlatTransaction, error) {
	if !IsValidAddress(tx.Account) {
		return nil, fmt.Errorf("%w: account %q", ErrInvalidAddress, tx.Account)
	}
	base := transaction.BaseTx{
		Account:            types.Address(tx.Account),
		Fee:                types.XRPCurrencyAmount(tx.Fee),
		Sequence:           tx.Sequence,
		Flags:              tx.Flags,
		LastLedgerSequence: tx.LastLedgerSequence,
	}

	switch tx.TransactionType {
	case TxPayment:
		if tx.Amount == nil {
			return nil, fmt.Errorf("payment without amount")
		}
		if !IsValidAddress(tx.Destination) {
			return nil, fmt.Errorf("%w: destination %q", ErrInvalidAddress, tx.Destination)
		}
		amount, err := issued(*tx.Amount)
		if err != nil {
			return nil, err
		}
		p := transaction.Payment{BaseTx: base, Amount: amount, Destination: types.Address(tx.Destination)}
		if tx.DestinationTag != nil {
			p.DestinationTag = *tx.DestinationTag
		}
		return p.Flatten(), nil
	case TxTrustSet:
		if tx.LimitAmount == nil {
			return nil, fmt.Errorf("trust set without limit")
		}
		limit, err := issued(*tx.LimitAmount)
		if err != nil {
			return nil, err
		}
		ts := transaction.TrustSet{BaseTx: base, LimitAmount: limit}
		return ts.Flatten(), nil
	default:
		return nil, fmt.Errorf("unsupported transaction type %q", tx.TransactionType)
	}
}

// Sign fills SigningPubKey and TxnSignature and returns the signed blob in
// upper-case hex together with the transaction hash.
func Sign(tx *Transaction, w *Wallet) (blob string, txHash string, err error) {
	if tx.Account != w.Address {
		return "", "", fmt.Errorf("wallet %s cannot sign for %s", w.Address, tx.Account)
	}
	flat, err := flatten(tx)
	if err != nil {
		return "", "", fmt.Errorf("serialize: %w", err)
	}

	blob, txHash, err = w.keys.Sign(flat)
	if err != nil {
		return "", "", fmt.Errorf("sign: %w", err)
	}
	tx.SigningPubKey = w.PublicKeyHex()
	if sig, ok := flat["TxnSignature"].(string); ok {
		tx.TxnSignature = sig
	}
	return blob, txHash, nil
}

// TransactionHash is the identifying hash of a signed blob in hex.
func TransactionHash(signedBlob string) (string, error) {
	return hash.SignTxBlob(signedBlob)
}
