package ledger

import (
	"strconv"
	"strings"
)

// TransactionType names the transactions this package can build.
type TransactionType string

const (
	TxPayment  TransactionType = "Payment"
	TxTrustSet TransactionType = "TrustSet"
)

const (
	// TrustSet flag: do not let the line ripple.
	FlagSetNoRipple uint32 = 0x00020000

	// DefaultTrustLimit is large enough to accept any realistic reward total.
	DefaultTrustLimit = "1000000"
)

// IssuedAmount is a token amount: a decimal value of a currency held
// against an issuer.
type IssuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

// FormatValue renders a float amount the way the ledger expects it.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Transaction is the subset of ledger transaction fields this system uses.
// Sequence, Fee and LastLedgerSequence are filled by Gateway.Submit when zero.
type Transaction struct {
	TransactionType    TransactionType `json:"TransactionType"`
	Account            string          `json:"Account"`
	Destination        string          `json:"Destination,omitempty"`
	Amount             *IssuedAmount   `json:"Amount,omitempty"`
	LimitAmount        *IssuedAmount   `json:"LimitAmount,omitempty"`
	DestinationTag     *uint32         `json:"DestinationTag,omitempty"`
	Flags              uint32          `json:"Flags"`
	Sequence           uint32          `json:"Sequence"`
	Fee                uint64          `json:"Fee,string"`
	LastLedgerSequence uint32          `json:"LastLedgerSequence"`
	SigningPubKey      string          `json:"SigningPubKey,omitempty"`
	TxnSignature       string          `json:"TxnSignature,omitempty"`
}

// NewPayment builds an issued-token payment from the issuer's account.
func NewPayment(from, to string, amount IssuedAmount) *Transaction {
	return &Transaction{
		TransactionType: TxPayment,
		Account:         from,
		Destination:     to,
		Amount:          &amount,
	}
}

// NewTrustSet builds a trust line from account toward the limit's issuer.
func NewTrustSet(account string, limit IssuedAmount) *Transaction {
	return &Transaction{
		TransactionType: TxTrustSet,
		Account:         account,
		LimitAmount:     &limit,
		Flags:           FlagSetNoRipple,
	}
}

// AccountInfo is the validated state of an account root.
type AccountInfo struct {
	Address  string
	Sequence uint32
	Balance  uint64 // drops
}

// AccountStatus separates absence from unreachability for callers that care.
type AccountStatus string

const (
	StatusExists      AccountStatus = "exists"
	StatusNotFound    AccountStatus = "not_found"
	StatusUnreachable AccountStatus = "unreachable"
)

// TrustLine is one line as returned by account_lines.
type TrustLine struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
	Limit    string `json:"limit"`
}

// Matches reports whether the line holds token issued by issuer.
func (l TrustLine) Matches(token, issuer string) bool {
	return l.Account == issuer && SameCurrency(l.Currency, token)
}

// BalanceValue parses the balance; malformed values count as zero.
func (l TrustLine) BalanceValue() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(l.Balance), 64)
	if err != nil {
		return 0
	}
	return v
}

// SubmitResult is the validated outcome of a submitted transaction.
type SubmitResult struct {
	Hash         string `json:"tx_hash"`
	EngineResult string `json:"engine_result"`
	LedgerIndex  uint32 `json:"ledger_index"`
	Raw          string `json:"-"`
}
