// Package ledger keeps the durable list of URLs that failed processing.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var header = []string{"url", "exception"}

// Entry is a failed URL and the error it failed with.
type Entry struct {
	URL       string
	Exception string
}

// Ledger holds the entries loaded from disk followed by failures recorded
// since. Entries are never deduplicated: a URL failing in several runs
// appears once per run.
type Ledger struct {
	prior []Entry
	added []Entry
}

// Load reads the ledger at path. A missing or empty file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Ledger{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	head, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}

	urlIdx, excIdx := -1, -1
	for i, col := range head {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case "url":
			urlIdx = i
		case "exception":
			excIdx = i
		}
	}
	if urlIdx < 0 {
		return nil, fmt.Errorf("ledger %q has no url column", path)
	}

	l := &Ledger{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
		if urlIdx >= len(row) || strings.TrimSpace(row[urlIdx]) == "" {
			continue
		}

		entry := Entry{URL: strings.TrimSpace(row[urlIdx])}
		if excIdx >= 0 && excIdx < len(row) {
			entry.Exception = row[excIdx]
		}
		l.prior = append(l.prior, entry)
	}

	return l, nil
}

// Append records a failure of url.
func (l *Ledger) Append(url string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	l.added = append(l.added, Entry{URL: url, Exception: msg})
}

// Failed reports whether url has any recorded failure.
func (l *Ledger) Failed(url string) bool {
	for _, e := range l.Entries() {
		if e.URL == url {
			return true
		}
	}
	return false
}

// Entries returns prior entries followed by the ones appended since Load.
func (l *Ledger) Entries() []Entry {
	all := make([]Entry, 0, len(l.prior)+len(l.added))
	all = append(all, l.prior...)
	return append(all, l.added...)
}

// Added returns the failures appended since Load.
func (l *Ledger) Added() []Entry {
	return append([]Entry(nil), l.added...)
}

// Remove drops every entry for the given URLs and returns how many went.
func (l *Ledger) Remove(urls ...string) int {
	drop := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		drop[u] = struct{}{}
	}

	removed := 0
	keep := func(entries []Entry) []Entry {
		kept := entries[:0]
		for _, e := range entries {
			if _, ok := drop[e.URL]; ok {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		return kept
	}
	l.prior = keep(l.prior)
	l.added = keep(l.added)
	return removed
}

// Save rewrites path with every entry. The file is replaced atomically.
func (l *Ledger) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	for _, e := range l.Entries() {
		if err := w.Write([]string{e.URL, e.Exception}); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
