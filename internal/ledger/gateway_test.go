package ledger

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hugs-network/trivia_layer/pkg/logger"
)

// fakeNode answers JSON-RPC calls from per-method handlers.
type fakeNode struct {
	mu       sync.Mutex
	handlers map[string]func(params gjson.Result) string
	calls    map[string]int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		handlers: make(map[string]func(gjson.Result) string),
		calls:    make(map[string]int),
	}
}

func (n *fakeNode) on(method string, h func(params gjson.Result) string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	method := gjson.GetBytes(body, "method").String()

	n.mu.Lock()
	n.calls[method]++
	h := n.handlers[method]
	n.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if h == nil {
		_, _ = io.WriteString(w, `{"result":{"status":"error","error":"unknownCmd"}}`)
		return
	}
	_, _ = io.WriteString(w, `{"result":`+h(gjson.GetBytes(body, "params.0"))+`}`)
}

func newTestGateway(t *testing.T, node *fakeNode) *Gateway {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{RPCURL: srv.URL})
	require.NoError(t, err)
	return NewGateway(client, GatewayConfig{
		SubmitTimeout: 2 * time.Second,
		PollInterval:  10 * time.Millisecond,
	}, logger.Discard())
}

const issuer = "rJrRMgiRgrU6hDF4pgu5DXQdWyPbY35ErN"

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}

func TestAccountExists(t *testing.T) {
	node := newFakeNode()
	node.on("account_info", func(p gjson.Result) string {
		if p.Get("account").String() == "rKnown" {
			return `{"status":"success","account_data":{"Account":"rKnown","Sequence":9,"Balance":"100000000"}}`
		}
		return `{"status":"error","error":"actNotFound","error_code":19,"error_message":"Account not found."}`
	})
	g := newTestGateway(t, node)
	ctx := context.Background()

	assert.True(t, g.AccountExists(ctx, "rKnown"))
	assert.False(t, g.AccountExists(ctx, "rMissing"))
	assert.Equal(t, StatusNotFound, g.Status(ctx, "rMissing"))

	info, err := g.AccountInfo(ctx, "rKnown")
	require.NoError(t, err)
	assert.Equal(t, uint32(9), info.Sequence)
	assert.Equal(t, uint64(100000000), info.Balance)

	_, err = g.AccountInfo(ctx, "rMissing")
	assert.True(t, errors.Is(err, ErrAccountNotFound))
	assert.True(t, IsRPCCode(err, "actNotFound"))
}

func TestAccountExistsUnreachable(t *testing.T) {
	client, err := NewClient(ClientConfig{RPCURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	g := NewGateway(client, GatewayConfig{}, logger.Discard())

	assert.False(t, g.AccountExists(context.Background(), "rAny"))
	assert.Equal(t, StatusUnreachable, g.Status(context.Background(), "rAny"))
	assert.Empty(t, g.TrustLines(context.Background(), "rAny"))
	assert.Equal(t, 0.0, g.BalanceOf(context.Background(), "rAny", "HUGS", issuer))
}

func TestAccountLinesFollowsMarker(t *testing.T) {
	node := newFakeNode()
	node.on("account_lines", func(p gjson.Result) string {
		if p.Get("marker").String() == "" {
			return `{"lines":[{"account":"` + issuer + `","currency":"4855475300000000000000000000000000000000","balance":"10","limit":"1000000"}],"marker":"page2"}`
		}
		return `{"lines":[{"account":"` + issuer + `","currency":"HUGS","balance":"2.5","limit":"1000000"},{"account":"rOther","currency":"HUGS","balance":"99","limit":"5"}]}`
	})
	g := newTestGateway(t, node)

	lines, err := g.AccountLines(context.Background(), "rDest")
	require.NoError(t, err)
	assert.Len(t, lines, 3)
	assert.Equal(t, 2, node.count("account_lines"))

	assert.Equal(t, 12.5, g.BalanceOf(context.Background(), "rDest", "HUGS", issuer))
	assert.Equal(t, 0.0, g.BalanceOf(context.Background(), "rDest", "USD", issuer))
}

func submitNode(t *testing.T, engine string, outcome string) *fakeNode {
	t.Helper()
	node := newFakeNode()
	node.on("account_info", func(gjson.Result) string {
		return `{"account_data":{"Sequence":3,"Balance":"50000000"}}`
	})
	node.on("fee", func(gjson.Result) string {
		return `{"drops":{"open_ledger_fee":"15"}}`
	})
	node.on("ledger_current", func(gjson.Result) string {
		return `{"ledger_current_index":1000}`
	})
	node.on("ledger", func(gjson.Result) string {
		return `{"ledger_index":1001}`
	})
	node.on("submit", func(p gjson.Result) string {
		assert.NotEmpty(t, p.Get("tx_blob").String())
		return `{"engine_result":"` + engine + `","engine_result_message":"msg","tx_json":{"hash":"ABC123"}}`
	})
	var polls int
	var mu sync.Mutex
	node.on("tx", func(gjson.Result) string {
		mu.Lock()
		defer mu.Unlock()
		polls++
		if polls < 2 {
			return `{"status":"error","error":"txnNotFound"}`
		}
		return `{"validated":true,"ledger_index":1002,"meta":{"TransactionResult":"` + outcome + `"}}`
	})
	return node
}

func TestSubmitWaitsForValidation(t *testing.T) {
	node := submitNode(t, "tesSUCCESS", "tesSUCCESS")
	g := newTestGateway(t, node)
	w, err := NewWallet()
	require.NoError(t, err)

	tx := NewTrustSet(w.Address, IssuedAmount{Currency: "HUGS", Issuer: issuer, Value: DefaultTrustLimit})
	res, err := g.Submit(context.Background(), tx, w)
	require.NoError(t, err)

	assert.Equal(t, "ABC123", res.Hash)
	assert.Equal(t, "tesSUCCESS", res.EngineResult)
	assert.Equal(t, uint32(1002), res.LedgerIndex)
	assert.Equal(t, uint32(3), tx.Sequence)
	assert.Equal(t, uint64(15), tx.Fee)
	assert.Equal(t, uint32(1020), tx.LastLedgerSequence)
	assert.GreaterOrEqual(t, node.count("tx"), 2)
}

func TestSubmitRejectsMalformed(t *testing.T) {
	node := submitNode(t, "temBAD_AMOUNT", "tesSUCCESS")
	g := newTestGateway(t, node)
	w, err := NewWallet()
	require.NoError(t, err)

	_, err = g.Submit(context.Background(), NewTrustSet(w.Address, IssuedAmount{Currency: "HUGS", Issuer: issuer, Value: "1"}), w)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)

	var engineErr *EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, "temBAD_AMOUNT", engineErr.Result)
	assert.Equal(t, 0, node.count("tx"))
}

func TestSubmitValidatedFailure(t *testing.T) {
	node := submitNode(t, "terQUEUED", "tecPATH_DRY")
	g := newTestGateway(t, node)
	w, err := NewWallet()
	require.NoError(t, err)

	_, err = g.Submit(context.Background(), NewTrustSet(w.Address, IssuedAmount{Currency: "HUGS", Issuer: issuer, Value: "1"}), w)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestSubmitExpires(t *testing.T) {
	node := submitNode(t, "tesSUCCESS", "tesSUCCESS")
	node.on("tx", func(gjson.Result) string { return `{"status":"error","error":"txnNotFound"}` })
	node.on("ledger", func(gjson.Result) string { return `{"ledger_index":2000}` })
	g := newTestGateway(t, node)
	w, err := NewWallet()
	require.NoError(t, err)

	_, err = g.Submit(context.Background(), NewTrustSet(w.Address, IssuedAmount{Currency: "HUGS", Issuer: issuer, Value: "1"}), w)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestSubmitTimesOut(t *testing.T) {
	node := submitNode(t, "tesSUCCESS", "tesSUCCESS")
	node.on("tx", func(gjson.Result) string { return `{"status":"error","error":"txnNotFound"}` })
	srv := httptest.NewServer(node)
	defer srv.Close()

	client, err := NewClient(ClientConfig{RPCURL: srv.URL})
	require.NoError(t, err)
	g := NewGateway(client, GatewayConfig{SubmitTimeout: 100 * time.Millisecond, PollInterval: 10 * time.Millisecond}, logger.Discard())
	w, err := NewWallet()
	require.NoError(t, err)

	_, err = g.Submit(context.Background(), NewTrustSet(w.Address, IssuedAmount{Currency: "HUGS", Issuer: issuer, Value: "1"}), w)
	assert.ErrorIs(t, err, ErrSubmitTimeout)
}
