// Package c2wa implements the Context->Word Array trie variant (§4.5.3):
// per level, a flat array of (word_id, payload) entries grouped by parent
// context-id, with a parallel [begin, end) index addressed by parent
// context-id, sorted so that lookup is a binary search. A found entry's
// position in the array plus one (context-id 0 stays reserved) is its
// context-id, handed to the next level.
//
// Per the specification's open question on producer ordering, entries are
// buffered during ingest and sorted by (parent_ctx, word_id) in
// PostLevel rather than relying on ARPA order to already group them by
// parent: the Word Index's counting policy renumbers ids after the
// 1-gram section, which can break strict lexicographic-by-prefix order
// for any later section.
package c2wa

import (
	"fmt"
	"sort"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/level1"
)

type entry struct {
	parentCtx uint32
	wordID    lm.WordID
	payload   lm.Payload
}

type topEntry struct {
	parentCtx uint32
	wordID    lm.WordID
	prob      float32
}

type level struct {
	pending []entry
	entries []entry
	begin   []int
	end     []int
}

// Trie is the Context->Word Array back-end.
type Trie struct {
	level1  level1.Array
	levels  [lm.MaxOrder + 1]*level // indices 2..MaxOrder-1
	topPend []topEntry
	top     []topEntry
}

// New constructs an empty C2WA trie.
func New(cfg trie.Config) *Trie {
	t := &Trie{}
	for m := 2; m < lm.MaxOrder; m++ {
		t.levels[m] = &level{}
	}
	return t
}

func (t *Trie) Variant() trie.Variant { return trie.C2WA }

func (t *Trie) Preallocate(counts trie.Counts) error {
	t.level1.Preallocate(counts[1])
	for m := 2; m < lm.MaxOrder; m++ {
		t.levels[m] = &level{pending: make([]entry, 0, counts[m])}
	}
	t.topPend = make([]topEntry, 0, counts[lm.MaxOrder])
	return nil
}

// contextIDAt resolves the context-id identifying ids (a prefix of length
// 1..MaxOrder-1), returning found=false if any component of the prefix is
// absent from the already-finalized levels below it. Level 1's
// "context-id" is simply its word id, the same convention the other
// layered variants use.
func (t *Trie) contextIDAt(ids lm.NGram) (uint32, bool) {
	if len(ids) == 1 {
		return uint32(ids[0]), true
	}
	idx, ok := t.findIndex(len(ids), ids)
	if !ok {
		return 0, false
	}
	return uint32(idx + 1), true
}

// findIndex returns the absolute index of ids within levels[level]'s
// sorted entries array.
func (t *Trie) findIndex(level int, ids lm.NGram) (int, bool) {
	parentCtx, ok := t.contextIDAt(ids[:len(ids)-1])
	if !ok {
		return 0, false
	}
	ld := t.levels[level]
	if int(parentCtx) >= len(ld.begin) {
		return 0, false
	}
	b, e := ld.begin[parentCtx], ld.end[parentCtx]
	word := ids.Last()
	lo, hi := b, e
	for lo < hi {
		mid := (lo + hi) / 2
		if ld.entries[mid].wordID < word {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < e && ld.entries[lo].wordID == word {
		return lo, true
	}
	return 0, false
}

func (t *Trie) AddNGram(level int, ids lm.NGram, payload lm.Payload) error {
	if level == 1 {
		t.level1.Insert(ids[0], payload)
		return nil
	}
	if level < 2 || level >= lm.MaxOrder {
		return fmt.Errorf("c2wa: AddNGram called with level %d, want 2..%d", level, lm.MaxOrder-1)
	}
	parentCtx, ok := t.contextIDAt(ids[:level-1])
	if !ok {
		return fmt.Errorf("c2wa: prefix of %v not yet present at level %d", []lm.WordID(ids), level-1)
	}
	ld := t.levels[level]
	ld.pending = append(ld.pending, entry{parentCtx: parentCtx, wordID: ids.Last(), payload: payload})
	return nil
}

func (t *Trie) AddTopNGram(ids lm.NGram, payload lm.TopPayload) error {
	if len(ids) != lm.MaxOrder {
		return fmt.Errorf("c2wa: AddTopNGram expects %d ids, got %d", lm.MaxOrder, len(ids))
	}
	parentCtx, ok := t.contextIDAt(ids[:lm.MaxOrder-1])
	if !ok {
		return fmt.Errorf("c2wa: prefix of %v not yet present", []lm.WordID(ids))
	}
	t.topPend = append(t.topPend, topEntry{parentCtx: parentCtx, wordID: ids.Last(), prob: payload.Prob})
	return nil
}

func (t *Trie) PostLevel(level int) error {
	if level == 1 || level == lm.MaxOrder+1 {
		return nil
	}
	if level == lm.MaxOrder {
		sort.Slice(t.topPend, func(i, j int) bool {
			return topKey(t.topPend[i]) < topKey(t.topPend[j])
		})
		t.top = t.topPend
		t.topPend = nil
		return nil
	}

	ld := t.levels[level]
	sort.Slice(ld.pending, func(i, j int) bool {
		if ld.pending[i].parentCtx != ld.pending[j].parentCtx {
			return ld.pending[i].parentCtx < ld.pending[j].parentCtx
		}
		return ld.pending[i].wordID < ld.pending[j].wordID
	})
	ld.entries = ld.pending
	ld.pending = nil

	maxParent := uint32(0)
	for _, e := range ld.entries {
		if e.parentCtx > maxParent {
			maxParent = e.parentCtx
		}
	}
	ld.begin = make([]int, maxParent+1)
	ld.end = make([]int, maxParent+1)
	for i := range ld.begin {
		ld.begin[i] = -1
	}
	for i, e := range ld.entries {
		if ld.begin[e.parentCtx] == -1 {
			ld.begin[e.parentCtx] = i
		}
		ld.end[e.parentCtx] = i + 1
	}
	for i := range ld.begin {
		if ld.begin[i] == -1 {
			ld.begin[i] = 0
			ld.end[i] = 0
		}
	}
	return nil
}

func topKey(e topEntry) uint64 {
	return uint64(e.wordID)<<32 | uint64(e.parentCtx)
}

func (t *Trie) Get1GramPayload(id lm.WordID) lm.Payload {
	return t.level1.Get(id)
}

func (t *Trie) GetMGramPayload(ids lm.NGram) (lm.Payload, bool) {
	level := len(ids)
	if level < 2 || level >= lm.MaxOrder {
		return lm.Payload{}, false
	}
	idx, ok := t.findIndex(level, ids)
	if !ok {
		return lm.Payload{}, false
	}
	return t.levels[level].entries[idx].payload, true
}

func (t *Trie) GetNGramProb(ids lm.NGram) (float32, bool) {
	if len(ids) != lm.MaxOrder {
		return 0, false
	}
	parentCtx, ok := t.contextIDAt(ids[:lm.MaxOrder-1])
	if !ok {
		return 0, false
	}
	key := uint64(ids.Last())<<32 | uint64(parentCtx)
	lo, hi := 0, len(t.top)
	for lo < hi {
		mid := (lo + hi) / 2
		if topKey(t.top[mid]) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(t.top) && topKey(t.top[lo]) == key {
		return t.top[lo].prob, true
	}
	return 0, false
}
