package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrSubmitTimeout     = errors.New("timed out waiting for validation")
	ErrExpired           = errors.New("transaction expired before validation")
	ErrInvalidSeed       = errors.New("invalid seed")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidCurrency   = errors.New("invalid currency code")
)

// RPCError is an error reported by the ledger node inside a JSON-RPC result.
type RPCError struct {
	Method  string
	Code    string
	Number  int64
	Message string
}

func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Method, e.Code)
}

// Is maps node error codes onto package sentinels.
func (e *RPCError) Is(target error) bool {
	switch target {
	case ErrAccountNotFound:
		return e.Code == "actNotFound"
	}
	return false
}

// IsRPCCode reports whether err is an RPCError carrying code.
func IsRPCCode(err error, code string) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

// EngineError is a transaction rejected by the ledger engine.
type EngineError struct {
	Result  string
	Message string
	Hash    string
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Result, e.Message)
	}
	return e.Result
}

func (e *EngineError) Unwrap() error { return ErrTransactionFailed }
