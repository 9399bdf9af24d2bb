// Package w2ca implements the Word->Context Array trie variant (§4.5.5):
// the same outer indexing by last word-id as W2CH, but each word's inner
// structure is a dynamic array of (parent_ctx, payload) entries grown via
// the Memory Growth Strategy during ingest and sorted by parent_ctx once
// the level's PostLevel runs, since the order parent contexts arrive in
// per word is otherwise arbitrary.
package w2ca

import (
	"fmt"
	"sort"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/dynarray"
	"github.com/arpalm/golm/internal/service/lm/growth"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/level1"
)

type entry struct {
	parentCtx lm.ContextID
	ctxID     lm.ContextID // this m-gram's own context-id, assigned in PostLevel
	payload   lm.Payload
}

type topEntry struct {
	parentCtx lm.ContextID
	prob      float32
}

// Trie is the Word->Context Array back-end.
type Trie struct {
	strategy growth.Strategy

	// dyn[level][wordID] holds the growing, not-yet-sorted entries for
	// that word during ingest; 2 <= level < MaxOrder.
	dyn [lm.MaxOrder + 1]map[lm.WordID]*dynarray.Array[entry]
	// sorted[level][wordID] holds the sorted, shrunk entries after
	// PostLevel, ready for binary search.
	sorted [lm.MaxOrder + 1]map[lm.WordID][]entry

	topDyn    map[lm.WordID]*dynarray.Array[topEntry]
	topSorted map[lm.WordID][]topEntry

	level1 level1.Array

	nextCtx [lm.MaxOrder + 1]lm.ContextID
}

// New constructs an empty W2CA trie using the given growth strategy for
// its per-word dynamic arrays.
func New(cfg trie.Config) *Trie {
	strategy := growth.New(growth.Function(cfg.GrowthFn), cfg.GrowthMinInc, cfg.GrowthFactor)
	if strategy.Factor == 0 {
		strategy = growth.New(growth.Linear, 4, 1.0)
	}
	t := &Trie{strategy: strategy}
	for m := 2; m < lm.MaxOrder; m++ {
		t.dyn[m] = make(map[lm.WordID]*dynarray.Array[entry])
		t.nextCtx[m] = lm.FirstContextID
	}
	t.topDyn = make(map[lm.WordID]*dynarray.Array[topEntry])
	return t
}

func (t *Trie) Variant() trie.Variant { return trie.W2CA }

func (t *Trie) Preallocate(counts trie.Counts) error {
	t.level1.Preallocate(counts[1])
	return nil
}

func (t *Trie) resolveContextID(ids lm.NGram) (lm.ContextID, bool) {
	if len(ids) == 0 {
		return lm.UndefinedContextID, false
	}
	if len(ids) == 1 {
		return lm.ContextID(ids[0]), true
	}
	level := len(ids)
	word := ids.Last()
	parentCtx, ok := t.resolveContextID(ids[:level-1])
	if !ok {
		return 0, false
	}
	entries, ok := t.sorted[level][word]
	if !ok {
		return 0, false
	}
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].parentCtx >= parentCtx })
	if idx < len(entries) && entries[idx].parentCtx == parentCtx {
		return entries[idx].ctxID, true
	}
	return 0, false
}

func (t *Trie) AddNGram(level int, ids lm.NGram, payload lm.Payload) error {
	if level == 1 {
		t.level1.Insert(ids[0], payload)
		return nil
	}
	if level < 2 || level >= lm.MaxOrder {
		return fmt.Errorf("w2ca: AddNGram called with level %d, want 2..%d", level, lm.MaxOrder-1)
	}
	parentCtx, ok := t.resolveContextID(ids[:level-1])
	if !ok {
		return fmt.Errorf("w2ca: prefix of %v not yet present at level %d", []lm.WordID(ids), level-1)
	}
	word := ids.Last()
	arr, ok := t.dyn[level][word]
	if !ok {
		arr = dynarray.New[entry](t.strategy)
		t.dyn[level][word] = arr
	}
	arr.Append(entry{parentCtx: parentCtx, payload: payload})
	return nil
}

func (t *Trie) AddTopNGram(ids lm.NGram, payload lm.TopPayload) error {
	if len(ids) != lm.MaxOrder {
		return fmt.Errorf("w2ca: AddTopNGram expects %d ids, got %d", lm.MaxOrder, len(ids))
	}
	parentCtx, ok := t.resolveContextID(ids[:lm.MaxOrder-1])
	if !ok {
		return fmt.Errorf("w2ca: prefix of %v not yet present", []lm.WordID(ids))
	}
	word := ids.Last()
	arr, ok := t.topDyn[word]
	if !ok {
		arr = dynarray.New[topEntry](t.strategy)
		t.topDyn[word] = arr
	}
	arr.Append(topEntry{parentCtx: parentCtx, prob: payload.Prob})
	return nil
}

func (t *Trie) PostLevel(level int) error {
	if level == 1 {
		return nil
	}
	if level == lm.MaxOrder {
		t.topSorted = make(map[lm.WordID][]topEntry, len(t.topDyn))
		for word, arr := range t.topDyn {
			arr.ShrinkToFit()
			s := append([]topEntry(nil), arr.Slice()...)
			sort.Slice(s, func(i, j int) bool { return s[i].parentCtx < s[j].parentCtx })
			t.topSorted[word] = s
		}
		t.topDyn = nil
		return nil
	}

	t.sorted[level] = make(map[lm.WordID][]entry, len(t.dyn[level]))
	next := t.nextCtx[level]
	// Deterministic global numbering: words in ascending order, then
	// parent-context order within each word.
	words := make([]lm.WordID, 0, len(t.dyn[level]))
	for w := range t.dyn[level] {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool { return words[i] < words[j] })

	for _, word := range words {
		arr := t.dyn[level][word]
		arr.ShrinkToFit()
		s := append([]entry(nil), arr.Slice()...)
		sort.Slice(s, func(i, j int) bool { return s[i].parentCtx < s[j].parentCtx })
		for i := range s {
			s[i].ctxID = next
			next++
		}
		t.sorted[level][word] = s
	}
	t.nextCtx[level] = next
	t.dyn[level] = nil
	return nil
}

func (t *Trie) Get1GramPayload(id lm.WordID) lm.Payload {
	return t.level1.Get(id)
}

func (t *Trie) GetMGramPayload(ids lm.NGram) (lm.Payload, bool) {
	level := len(ids)
	if level < 2 || level >= lm.MaxOrder {
		return lm.Payload{}, false
	}
	word := ids.Last()
	parentCtx, ok := t.resolveContextID(ids[:level-1])
	if !ok {
		return lm.Payload{}, false
	}
	entries, ok := t.sorted[level][word]
	if !ok {
		return lm.Payload{}, false
	}
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].parentCtx >= parentCtx })
	if idx < len(entries) && entries[idx].parentCtx == parentCtx {
		return entries[idx].payload, true
	}
	return lm.Payload{}, false
}

func (t *Trie) GetNGramProb(ids lm.NGram) (float32, bool) {
	if len(ids) != lm.MaxOrder {
		return 0, false
	}
	word := ids.Last()
	parentCtx, ok := t.resolveContextID(ids[:lm.MaxOrder-1])
	if !ok {
		return 0, false
	}
	entries, ok := t.topSorted[word]
	if !ok {
		return 0, false
	}
	idx := sort.Search(len(entries), func(i int) bool { return entries[i].parentCtx >= parentCtx })
	if idx < len(entries) && entries[idx].parentCtx == parentCtx {
		return entries[idx].prob, true
	}
	return 0, false
}
