// Package c2dh implements the Context->Data Hybrid trie variant (§4.5.2):
// the same Szudzik keying as C2DM, but the hash map at each level stores a
// freshly issued, dense context-id rather than the payload itself, and
// payloads live in a parallel array indexed by that id. This halves the
// map value size (one uint32 instead of an 8-byte payload) at the cost of
// one extra indirection per lookup.
package c2dh

import (
	"fmt"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/pairing"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/level1"
)

// Trie is the Context->Data Hybrid back-end.
type Trie struct {
	level1 level1.Array

	// ctxOf[m] maps Szudzik(word_id, parent_ctx) to the dense context-id
	// assigned to that m-gram. Indices 2..MaxOrder-1.
	ctxOf [lm.MaxOrder + 1]map[uint64]lm.ContextID
	// payloads[m][ctxID] is the payload for the m-gram that was assigned
	// ctxID. Index 0 is unused; ids start at FirstContextID.
	payloads [lm.MaxOrder + 1][]lm.Payload
	nextCtx  [lm.MaxOrder + 1]lm.ContextID

	// top maps the level-MaxOrder Szudzik key directly to its payload;
	// there is no level MaxOrder+1 to issue a context-id for.
	top map[uint64]lm.TopPayload
}

// New constructs an empty C2DH trie.
func New(cfg trie.Config) *Trie {
	t := &Trie{}
	for m := 2; m < lm.MaxOrder; m++ {
		t.ctxOf[m] = make(map[uint64]lm.ContextID)
		t.payloads[m] = []lm.Payload{{}} // index 0 reserved
		t.nextCtx[m] = lm.FirstContextID
	}
	t.top = make(map[uint64]lm.TopPayload)
	return t
}

func (t *Trie) Variant() trie.Variant { return trie.C2DH }

func (t *Trie) Preallocate(counts trie.Counts) error {
	t.level1.Preallocate(counts[1])
	for m := 2; m < lm.MaxOrder; m++ {
		t.ctxOf[m] = make(map[uint64]lm.ContextID, counts[m])
		t.payloads[m] = make([]lm.Payload, 1, counts[m]+1)
		t.nextCtx[m] = lm.FirstContextID
	}
	t.top = make(map[uint64]lm.TopPayload, counts[lm.MaxOrder])
	return nil
}

// walkContext resolves the parent context (as a raw uint64, ready to be
// folded with the next word id) of ids[:len(ids)-1]. For a 1-gram prefix
// the unigram's own word id stands in as the context, matching C2DM's
// convention so the two variants agree on query results.
func (t *Trie) walkContext(ids lm.NGram) (uint64, bool) {
	prefix := ids[:len(ids)-1]
	ctx := uint64(prefix[0])
	for i := 1; i < len(prefix); i++ {
		level := i + 1
		key := pairing.Szudzik(uint64(prefix[i]), ctx)
		id, ok := t.ctxOf[level][key]
		if !ok {
			return 0, false
		}
		ctx = uint64(id)
	}
	return ctx, true
}

func (t *Trie) AddNGram(level int, ids lm.NGram, payload lm.Payload) error {
	if level == 1 {
		t.level1.Insert(ids[0], payload)
		return nil
	}
	if level < 2 || level >= lm.MaxOrder {
		return fmt.Errorf("c2dh: AddNGram called with level %d, want 2..%d", level, lm.MaxOrder-1)
	}
	parentCtx, ok := t.walkContext(ids)
	if !ok {
		return fmt.Errorf("c2dh: prefix of %v not yet present at level %d", []lm.WordID(ids), level-1)
	}
	key := pairing.Szudzik(uint64(ids.Last()), parentCtx)
	id, exists := t.ctxOf[level][key]
	if !exists {
		id = t.nextCtx[level]
		t.nextCtx[level]++
		t.ctxOf[level][key] = id
		if int(id) >= len(t.payloads[level]) {
			grown := make([]lm.Payload, int(id)+1)
			copy(grown, t.payloads[level])
			t.payloads[level] = grown
		}
	}
	t.payloads[level][id] = payload
	return nil
}

func (t *Trie) AddTopNGram(ids lm.NGram, payload lm.TopPayload) error {
	if len(ids) != lm.MaxOrder {
		return fmt.Errorf("c2dh: AddTopNGram expects %d ids, got %d", lm.MaxOrder, len(ids))
	}
	parentCtx, ok := t.walkContext(ids)
	if !ok {
		return fmt.Errorf("c2dh: prefix of %v not yet present", []lm.WordID(ids))
	}
	key := pairing.Szudzik(uint64(ids.Last()), parentCtx)
	t.top[key] = payload
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
	parentCtx, ok := t.walkContext(ids)
	if !ok {
		return lm.Payload{}, false
	}
	key := pairing.Szudzik(uint64(ids.Last()), parentCtx)
	id, ok := t.ctxOf[level][key]
	if !ok {
		return lm.Payload{}, false
	}
	return t.payloads[level][id], true
}

func (t *Trie) GetNGramProb(ids lm.NGram) (float32, bool) {
	if len(ids) != lm.MaxOrder {
		return 0, false
	}
	parentCtx, ok := t.walkContext(ids)
	if !ok {
		return 0, false
	}
	key := pairing.Szudzik(uint64(ids.Last()), parentCtx)
	p, ok := t.top[key]
	if !ok {
		return 0, false
	}
	return p.Prob, true
}
