// Package aggregate keeps the best-performing policy per matchup.
package aggregate

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/signalnine/highwin/internal/result"
	"github.com/signalnine/highwin/internal/runconfig"
	"github.com/signalnine/highwin/internal/stats"
)

// Key identifies a matchup: our policy trained in Env against the
// opponent at OpponentPath playing slot OpponentIndex.
type Key struct {
	Env           string
	OpponentIndex int
	OpponentPath  string
}

func compareKeys(a, b Key) int {
	return cmp.Or(
		cmp.Compare(a.Env, b.Env),
		cmp.Compare(a.OpponentIndex, b.OpponentIndex),
		cmp.Compare(a.OpponentPath, b.OpponentPath),
	)
}

type record struct {
	policy  string
	winrate float64
}

// Best folds run results into the highest win rate per Key. The zero
// win rate is the floor: a run must beat it strictly to be recorded, and
// ties keep the earlier run.
type Best struct {
	winTags []string
	records map[Key]record
}

// New returns an empty Best. winTags[i] is the win metric of slot i.
func New(winTags []string) *Best {
	return &Best{winTags: winTags, records: map[Key]record{}}
}

// KeyFor derives the matchup key of a run.
func KeyFor(cfg *runconfig.RunConfig) Key {
	return Key{
		Env:           cfg.EnvName,
		OpponentIndex: cfg.VictimIndex,
		OpponentPath:  cfg.OpponentPath(),
	}
}

// Improves reports whether a run would replace the current best for its
// key.
func (b *Best) Improves(cfg *runconfig.RunConfig, means stats.Means) bool {
	return b.rate(cfg, means) > b.records[KeyFor(cfg)].winrate
}

// Fold offers one run. It reports whether the run became the best for
// its key.
func (b *Best) Fold(cfg *runconfig.RunConfig, means stats.Means, modelPath string) bool {
	if !b.Improves(cfg, means) {
		return false
	}
	b.records[KeyFor(cfg)] = record{policy: modelPath, winrate: b.rate(cfg, means)}
	return true
}

func (b *Best) rate(cfg *runconfig.RunConfig, means stats.Means) float64 {
	return means.Rate(b.winTags[cfg.OurIndex()])
}

// Winrate returns the stored win rate for key, zero if none.
func (b *Best) Winrate(key Key) float64 {
	return b.records[key].winrate
}

func (b *Best) Len() int {
	return len(b.records)
}

// Document reshapes the records into env -> slot -> opponent maps,
// visiting keys in sorted order.
func (b *Best) Document() *result.Document {
	doc := &result.Document{
		Policies: map[string]map[string]map[string]string{},
		Winrates: map[string]map[string]map[string]float64{},
	}
	keys := make([]Key, 0, len(b.records))
	for k := range b.records {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	for _, k := range keys {
		rec := b.records[k]
		slot := strconv.Itoa(k.OpponentIndex)
		nest(doc.Policies, k.Env, slot)[k.OpponentPath] = rec.policy
		nest(doc.Winrates, k.Env, slot)[k.OpponentPath] = rec.winrate
	}
	return doc
}

func nest[V any](m map[string]map[string]map[string]V, env, slot string) map[string]V {
	slots, ok := m[env]
	if !ok {
		slots = map[string]map[string]V{}
		m[env] = slots
	}
	opps, ok := slots[slot]
	if !ok {
		opps = map[string]V{}
		slots[slot] = opps
	}
	return opps
}
