// Package w2ch implements the Word->Context Hybrid trie variant (§4.5.4):
// indexed first by the last word-id of the m-gram, then by a hash map
// from parent context-id to a freshly issued child context-id, with
// payloads stored densely indexed by that child id. Good when most words
// have few m-gram suffixes, since each word's sub-map stays small.
package w2ch

import (
	"fmt"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/level1"
)

// Trie is the Word->Context Hybrid back-end.
type Trie struct {
	level1 level1.Array

	// byWord[level][wordID][parentCtx] = childCtx, for 2 <= level < MaxOrder.
	byWord   [lm.MaxOrder + 1]map[lm.WordID]map[lm.ContextID]lm.ContextID
	payloads [lm.MaxOrder + 1][]lm.Payload
	nextCtx  [lm.MaxOrder + 1]lm.ContextID

	// topByWord[wordID][parentCtx] = prob, for level == MaxOrder.
	topByWord map[lm.WordID]map[lm.ContextID]float32
}

// New constructs an empty W2CH trie.
func New(cfg trie.Config) *Trie {
	t := &Trie{}
	for m := 2; m < lm.MaxOrder; m++ {
		t.byWord[m] = make(map[lm.WordID]map[lm.ContextID]lm.ContextID)
		t.payloads[m] = []lm.Payload{{}}
		t.nextCtx[m] = lm.FirstContextID
	}
	t.topByWord = make(map[lm.WordID]map[lm.ContextID]float32)
	return t
}

func (t *Trie) Variant() trie.Variant { return trie.W2CH }

func (t *Trie) Preallocate(counts trie.Counts) error {
	t.level1.Preallocate(counts[1])
	for m := 2; m < lm.MaxOrder; m++ {
		t.byWord[m] = make(map[lm.WordID]map[lm.ContextID]lm.ContextID)
		t.payloads[m] = make([]lm.Payload, 1, counts[m]+1)
		t.nextCtx[m] = lm.FirstContextID
	}
	t.topByWord = make(map[lm.WordID]map[lm.ContextID]float32)
	return nil
}

// resolveContextID returns the context-id naming the full ids sequence,
// walking the byWord maps level by level. A 1-long ids resolves to its
// own word id, the convention every layered variant shares.
func (t *Trie) resolveContextID(ids lm.NGram) (lm.ContextID, bool) {
	if len(ids) == 0 {
		return lm.UndefinedContextID, false
	}
	ctx := lm.ContextID(ids[0])
	for i := 1; i < len(ids); i++ {
		level := i + 1
		byCtx, ok := t.byWord[level][ids[i]]
		if !ok {
			return 0, false
		}
		next, ok := byCtx[ctx]
		if !ok {
			return 0, false
		}
		ctx = next
	}
	return ctx, true
}

func (t *Trie) AddNGram(level int, ids lm.NGram, payload lm.Payload) error {
	if level == 1 {
		t.level1.Insert(ids[0], payload)
		return nil
	}
	if level < 2 || level >= lm.MaxOrder {
		return fmt.Errorf("w2ch: AddNGram called with level %d, want 2..%d", level, lm.MaxOrder-1)
	}
	parentCtx, ok := t.resolveContextID(ids[:level-1])
	if !ok {
		return fmt.Errorf("w2ch: prefix of %v not yet present at level %d", []lm.WordID(ids), level-1)
	}
	word := ids.Last()
	byCtx, ok := t.byWord[level][word]
	if !ok {
		byCtx = make(map[lm.ContextID]lm.ContextID)
		t.byWord[level][word] = byCtx
	}
	childCtx, exists := byCtx[parentCtx]
	if !exists {
		childCtx = t.nextCtx[level]
		t.nextCtx[level]++
		byCtx[parentCtx] = childCtx
		if int(childCtx) >= len(t.payloads[level]) {
			grown := make([]lm.Payload, int(childCtx)+1)
			copy(grown, t.payloads[level])
			t.payloads[level] = grown
		}
	}
	t.payloads[level][childCtx] = payload
	return nil
}

func (t *Trie) AddTopNGram(ids lm.NGram, payload lm.TopPayload) error {
	if len(ids) != lm.MaxOrder {
		return fmt.Errorf("w2ch: AddTopNGram expects %d ids, got %d", lm.MaxOrder, len(ids))
	}
	parentCtx, ok := t.resolveContextID(ids[:lm.MaxOrder-1])
	if !ok {
		return fmt.Errorf("w2ch: prefix of %v not yet present", []lm.WordID(ids))
	}
	word := ids.Last()
	byCtx, ok := t.topByWord[word]
	if !ok {
		byCtx = make(map[lm.ContextID]float32)
		t.topByWord[word] = byCtx
	}
	byCtx[parentCtx] = payload.Prob
	return nil
}

func (t *Trie) PostLevel(level int) error { return nil }

func (t *Trie) Get1GramPayload(id lm.WordID) lm.Payload {
	return t.level1.Get(id)
}

func (t *Trie) GetMGramPayload(ids lm.NGram) (lm.Payload, bool) {
	level := len(ids)
	if level < 2 || level >= lm.MaxOrder {
		return lm.Payload{}, false
	}
	ctx, ok := t.resolveContextID(ids)
	if !ok {
		return lm.Payload{}, false
	}
	return t.payloads[level][ctx], true
}

func (t *Trie) GetNGramProb(ids lm.NGram) (float32, bool) {
	if len(ids) != lm.MaxOrder {
		return 0, false
	}
	parentCtx, ok := t.resolveContextID(ids[:lm.MaxOrder-1])
	if !ok {
		return 0, false
	}
	byCtx, ok := t.topByWord[ids.Last()]
	if !ok {
		return 0, false
	}
	prob, ok := byCtx[parentCtx]
	return prob, ok
}
