package result

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPath is where a single log dir's summary is written when no
// output path is given.
func DefaultPath(logDir, name string) string {
	return filepath.Join(logDir, name)
}

// Create opens the output file for writing, truncating any previous
// summary.
func Create(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening output: %w", err)
	}
	return f, nil
}

func Write(w io.Writer, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing result: %w", err)
	}
	return &doc, nil
}

// Rows flattens doc, sorted by env, slot and opponent.
func (doc *Document) Rows() []Row {
	var rows []Row
	for env, slots := range doc.Winrates {
		for slot, opps := range slots {
			for opp, rate := range opps {
				rows = append(rows, Row{
					Env:          env,
					OpponentSlot: slot,
					Opponent:     opp,
					Winrate:      rate,
					Policy:       doc.Policies[env][slot][opp],
				})
			}
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Env != b.Env {
			return a.Env < b.Env
		}
		if a.OpponentSlot != b.OpponentSlot {
			return a.OpponentSlot < b.OpponentSlot
		}
		return a.Opponent < b.Opponent
	})
	return rows
}
