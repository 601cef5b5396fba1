package rewards

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultLedgerFile is where mock-mode rewards are recorded.
const DefaultLedgerFile = "/tmp/hugs_ledger.jsonl"

// Entry is one mock-mode reward line.
type Entry struct {
	Type      string  `json:"type"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Token     string  `json:"token"`
	Reason    string  `json:"reason"`
	Timestamp string  `json:"timestamp"`
	TS        float64 `json:"ts"`
	TxHash    string  `json:"tx_hash"`
}

// MockLedger is an append-only JSON-lines reward log. Each entry is
// written with a single append so a crash can only truncate the last line,
// and readers skip any line that does not parse.
type MockLedger struct {
	path         string
	defaultToken string
	now          func() time.Time

	mu sync.Mutex
}

// NewMockLedger opens the log at path; the file is created on first write.
func NewMockLedger(path, defaultToken string) *MockLedger {
	if path == "" {
		path = DefaultLedgerFile
	}
	return &MockLedger{path: path, defaultToken: defaultToken, now: time.Now}
}

// Path returns the log location.
func (l *MockLedger) Path() string { return l.path }

// Append records a reward and returns the stored entry with its synthetic
// transaction id.
func (l *MockLedger) Append(to string, amount float64, token, reason string) (Entry, error) {
	if token == "" {
		token = l.defaultToken
	}
	now := l.now().UTC()
	entry := Entry{
		Type:      "reward",
		To:        to,
		Amount:    amount,
		Token:     token,
		Reason:    reason,
		Timestamp: now.Format("2006-01-02T15:04:05.000000") + "Z",
		TS:        float64(now.UnixNano()) / float64(time.Second),
		TxHash:    fmt.Sprintf("mock-%d", now.UnixMilli()),
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encode entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return Entry{}, fmt.Errorf("create ledger dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open ledger: %w", err)
	}
	if unterminated(f) {
		line = append([]byte{'\n'}, line...)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return Entry{}, fmt.Errorf("append ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return Entry{}, fmt.Errorf("close ledger: %w", err)
	}
	return entry, nil
}

// unterminated reports whether the file ends mid-line, as after a crash.
func unterminated(f *os.File) bool {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false
	}
	return last[0] != '\n'
}

// Entries reads every well-formed entry in file order. A missing file is
// an empty ledger.
func (l *MockLedger) Entries() ([]Entry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !gjson.Valid(line) {
			continue
		}
		doc := gjson.Parse(line)
		if !doc.IsObject() {
			continue
		}
		token := doc.Get("token").String()
		if token == "" {
			token = l.defaultToken
		}
		out = append(out, Entry{
			Type:      doc.Get("type").String(),
			To:        doc.Get("to").String(),
			Amount:    doc.Get("amount").Float(),
			Token:     token,
			Reason:    doc.Get("reason").String(),
			Timestamp: doc.Get("timestamp").String(),
			TS:        doc.Get("ts").Float(),
			TxHash:    doc.Get("tx_hash").String(),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return out, nil
}

// Balance sums the amounts paid to address in token.
func (l *MockLedger) Balance(address, token string) (float64, error) {
	entries, err := l.Entries()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, e := range entries {
		if e.To == address && e.Token == token {
			total += e.Amount
		}
	}
	return total, nil
}

// History returns up to limit entries for address and token, newest first.
func (l *MockLedger) History(address, token string, limit int) ([]Entry, error) {
	entries, err := l.Entries()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := entries[i]
		if e.To == address && e.Token == token {
			out = append(out, e)
		}
	}
	return out, nil
}
