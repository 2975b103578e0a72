// Package ledger persists the set of phone numbers already forwarded
// downstream, so repeated scrapes of the same pending order are
// classified as already-seen instead of re-created.
package ledger

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"
)

type Ledger struct {
	mu       sync.RWMutex
	phones   map[string]struct{}
	filename string
	dirty    bool
	logger   *slog.Logger
}

// Load reads the ledger file. A missing or corrupt file is not fatal:
// the process continues with an empty ledger and simply resends orders
// it would otherwise have skipped, which the downstream API dedupes by
// order key.
func Load(filename string) *Ledger {
	l := &Ledger{
		phones:   make(map[string]struct{}),
		filename: filename,
		logger:   slog.Default().With("component", "ledger"),
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("failed to read ledger file", "path", filename, "error", err)
		}
		return l
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("ledger file is malformed, starting empty", "path", filename, "error", err)
		return l
	}

	for _, phone := range entries {
		if phone != "" {
			l.phones[phone] = struct{}{}
		}
	}
	return l
}

func (l *Ledger) Contains(phone string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.phones[phone]
	return ok
}

// Add records a phone as forwarded and marks the ledger dirty. Phones
// are only ever added, never removed.
func (l *Ledger) Add(phone string) {
	if phone == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.phones[phone]; !ok {
		l.phones[phone] = struct{}{}
	}
	l.dirty = true
}

// MarkDirty forces the next Flush to write even when membership did not
// change, e.g. after an updated order.
func (l *Ledger) MarkDirty() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirty = true
}

func (l *Ledger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.phones)
}

// Phones returns the ledger contents sorted for reproducibility.
func (l *Ledger) Phones() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := make([]string, 0, len(l.phones))
	for phone := range l.phones {
		entries = append(entries, phone)
	}
	sort.Strings(entries)
	return entries
}

// Flush writes the ledger to disk if it changed since the last flush.
// Write errors are logged, not returned as fatal: losing a flush only
// causes a duplicate resend on the next cycle.
func (l *Ledger) Flush() {
	l.mu.Lock()
	if !l.dirty {
		l.mu.Unlock()
		return
	}
	entries := make([]string, 0, len(l.phones))
	for phone := range l.phones {
		entries = append(entries, phone)
	}
	l.dirty = false
	l.mu.Unlock()

	sort.Strings(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		l.logger.Warn("failed to encode ledger", "error", err)
		return
	}

	// Write to temp file first for atomicity
	tmpFile := l.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		l.logger.Warn("failed to write ledger file", "path", l.filename, "error", err)
		return
	}
	if err := os.Rename(tmpFile, l.filename); err != nil {
		l.logger.Warn("failed to replace ledger file", "path", l.filename, "error", err)
	}
}
