// Package ledger reads and updates the account CSV that drives a run.
//
// The file has a header row naming at least an id and a completion-state
// column. Username and password columns are optional and read as empty when
// absent. Every other column, the column order and the record order survive
// a rewrite untouched.
package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrLedgerMissing is returned when the ledger file does not exist.
	ErrLedgerMissing = errors.New("ledger file not found")
	// ErrAccountNotFound is returned by MarkDone when no record has the id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrBadHeader is returned when a required column is absent.
	ErrBadHeader = errors.New("ledger header is missing a required column")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Accepted header names per logical column.
var columnAliases = map[string][]string{
	"id":       {"id"},
	"username": {"username", "user"},
	"password": {"password", "pass"},
	"state":    {"completion_state", "state"},
}

// Columns a ledger cannot be read without.
var requiredColumns = map[string]bool{"id": true, "state": true}

// Account is one ledger record.
type Account struct {
	ID       string `yaml:"id"              json:"id"`
	Username string `yaml:"username"        json:"username"`
	Password string `yaml:"password"        json:"password"`
	State    string `yaml:"state,omitempty" json:"state,omitempty"`
	// Row is the 1-based record number, excluding the header.
	Row int `yaml:"row" json:"row"`
}

// Done reports whether the account carries a completion marker.
func (a Account) Done() bool {
	return strings.TrimSpace(a.State) != ""
}

// Ledger is a CSV account file. It holds no state between calls: every
// operation reads the file afresh.
type Ledger struct {
	path string
	log  *slog.Logger
}

// Open returns a Ledger for path. The file is not read until needed.
func Open(path string) *Ledger {
	return &Ledger{path: path, log: slog.Default().With("component", "ledger")}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// List returns every account in stored order.
func (l *Ledger) List() ([]Account, error) {
	t, err := l.read()
	if err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(t.records))
	for i := range t.records {
		accounts = append(accounts, t.account(i))
	}
	return accounts, nil
}

// NextEligible returns the first account in stored order whose completion
// marker is empty after trimming whitespace. ok is false when every account
// is done.
func (l *Ledger) NextEligible() (Account, bool, error) {
	t, err := l.read()
	if err != nil {
		return Account{}, false, err
	}
	for i := range t.records {
		if a := t.account(i); !a.Done() {
			return a, true, nil
		}
	}
	return Account{}, false, nil
}

// MarkDone sets the completion marker of the account with id and rewrites
// the file atomically under an exclusive lock. Marking an already-marked
// account again leaves the file unchanged.
func (l *Ledger) MarkDone(id, marker string) error {
	lock := newFileLock(l.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	t, err := l.read()
	if err != nil {
		return err
	}
	row := -1
	for i, rec := range t.records {
		if strings.TrimSpace(t.field(rec, "id")) == strings.TrimSpace(id) {
			row = i
			break
		}
	}
	if row < 0 {
		return fmt.Errorf("%w: id %q in %s", ErrAccountNotFound, id, l.path)
	}

	col := t.cols["state"]
	rec := t.records[row]
	if col < len(rec) && rec[col] == marker {
		l.log.Debug("account already marked", "account", id, "marker", marker)
		return nil
	}
	for len(rec) <= col {
		rec = append(rec, "")
	}
	rec[col] = marker
	t.records[row] = rec

	if err := l.write(t); err != nil {
		return err
	}
	l.log.Info("account marked", "account", id, "marker", marker)
	return nil
}

// table is the parsed ledger file.
type table struct {
	header  []string
	records [][]string
	cols    map[string]int // logical column -> index
	bom     bool
	crlf    bool
	mode    os.FileMode
}

func (t *table) field(rec []string, logical string) string {
	i := t.cols[logical]
	if i >= 0 && i < len(rec) {
		return rec[i]
	}
	return ""
}

func (t *table) account(i int) Account {
	rec := t.records[i]
	return Account{
		ID:       strings.TrimSpace(t.field(rec, "id")),
		Username: t.field(rec, "username"),
		Password: t.field(rec, "password"),
		State:    t.field(rec, "state"),
		Row:      i + 1,
	}
}

func (l *Ledger) read() (*table, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLedgerMissing, l.path)
		}
		return nil, fmt.Errorf("stat ledger: %w", err)
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return parse(data, info.Mode().Perm())
}

func parse(data []byte, mode os.FileMode) (*table, error) {
	t := &table{mode: mode, cols: make(map[string]int)}
	if bytes.HasPrefix(data, utf8BOM) {
		t.bom = true
		data = data[len(utf8BOM):]
	}
	t.crlf = bytes.Contains(data, []byte("\r\n"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrBadHeader)
	}
	t.header, t.records = rows[0], rows[1:]

	for logical, names := range columnAliases {
		idx := -1
		for _, name := range names {
			if idx = headerIndex(t.header, name); idx >= 0 {
				break
			}
		}
		if idx < 0 && requiredColumns[logical] {
			return nil, fmt.Errorf("%w: %s (accepted: %s)", ErrBadHeader, logical, strings.Join(names, ", "))
		}
		t.cols[logical] = idx
	}
	return t, nil
}

func headerIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// write replaces the ledger with t via a temp file in the same directory.
func (l *Ledger) write(t *table) error {
	var buf bytes.Buffer
	if t.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	w.UseCRLF = t.crlf
	if err := w.Write(t.header); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := w.WriteAll(t.records); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), "."+filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, t.mode); err != nil {
		l.log.Debug("cannot copy ledger permissions", "error", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
