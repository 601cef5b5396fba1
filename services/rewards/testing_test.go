package rewards

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugs-network/trivia_layer/internal/faucet"
	"github.com/hugs-network/trivia_layer/internal/ledger"
)

// fakeLedger is an in-memory ledger. TrustSet submissions create lines.
type fakeLedger struct {
	mu        sync.Mutex
	existing  map[string]bool
	lines     map[string][]ledger.TrustLine
	submitted []ledger.Transaction
	submitErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		existing: make(map[string]bool),
		lines:    make(map[string][]ledger.TrustLine),
	}
}

func (f *fakeLedger) activate(address string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existing[address] = true
}

func (f *fakeLedger) addLine(address string, line ledger.TrustLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines[address] = append(f.lines[address], line)
}

func (f *fakeLedger) submissions() []ledger.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.Transaction(nil), f.submitted...)
}

func (f *fakeLedger) AccountExists(ctx context.Context, address string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[address]
}

func (f *fakeLedger) TrustLines(ctx context.Context, address string) []ledger.TrustLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.TrustLine(nil), f.lines[address]...)
}

func (f *fakeLedger) BalanceOf(ctx context.Context, address, token, issuer string) float64 {
	var total float64
	for _, l := range f.TrustLines(ctx, address) {
		if l.Matches(token, issuer) {
			total += l.BalanceValue()
		}
	}
	return total
}

func (f *fakeLedger) Submit(ctx context.Context, tx *ledger.Transaction, w *ledger.Wallet) (ledger.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return ledger.SubmitResult{}, f.submitErr
	}
	f.submitted = append(f.submitted, *tx)
	if tx.TransactionType == ledger.TxTrustSet {
		f.lines[tx.Account] = append(f.lines[tx.Account], ledger.TrustLine{
			Account:  tx.LimitAmount.Issuer,
			Currency: tx.LimitAmount.Currency,
			Balance:  "0",
			Limit:    tx.LimitAmount.Value,
		})
	}
	return ledger.SubmitResult{Hash: fmt.Sprintf("HASH%d", len(f.submitted)), EngineResult: "tesSUCCESS"}, nil
}

// fakeFunder funds by activating the address on the fake ledger.
type fakeFunder struct {
	mu     sync.Mutex
	ok     bool
	calls  int
	ledger *fakeLedger
}

func (f *fakeFunder) Fund(ctx context.Context, address string) faucet.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if !f.ok {
		return faucet.Result{StatusCode: 503, Detail: map[string]interface{}{"status_code": 503, "text": "down"}}
	}
	if f.ledger != nil {
		f.ledger.activate(address)
	}
	return faucet.Result{OK: true, StatusCode: 200, Detail: map[string]interface{}{"amount": 1000}}
}

func (f *fakeFunder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
