package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultLedgerPath is the progress file used when none is configured.
const DefaultLedgerPath = "import_progress.txt"

// Ledger is the append-only list of app ids that were imported successfully.
// One id per line; a line is written only after its import committed.
type Ledger struct {
	path string
	done map[int]struct{}
}

// OpenLedger loads the existing progress file, if any.
func OpenLedger(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is empty")
	}
	l := &Ledger{path: path, done: make(map[int]struct{})}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load() error {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !isDigits(line) {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		l.done[id] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Len() int { return len(l.done) }

func (l *Ledger) Contains(appID int) bool {
	_, ok := l.done[appID]
	return ok
}

// Append records appID durably. The file is opened, written, synced and
// closed per call so an interrupted run never leaves a partial line behind
// an earlier complete one.
func (l *Ledger) Append(appID int) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	_, writeErr := f.WriteString(strconv.Itoa(appID) + "\n")
	syncErr := f.Sync()
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("append ledger: %w", writeErr)
	}
	if syncErr != nil {
		return fmt.Errorf("sync ledger: %w", syncErr)
	}
	if closeErr != nil {
		return closeErr
	}
	l.done[appID] = struct{}{}
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
