// Package c2dm implements the Context->Data Map trie variant (§4.5.1): a
// hash map per level from a Szudzik-paired (word-id, parent-context-id)
// key straight to the m-gram payload. The key doubles as the child
// context-id, since C2DM never issues a separate context identifier.
//
// This is the variant most directly grounded on the teacher's own
// NGramTrie (internal/service/ngram/ngram_trie.go): both key a node by
// folding a word id into its parent, both store payloads in a Go map
// rather than an array. C2DM replaces the teacher's map[uint32]*TrieNode
// child pointers, which require one allocation per node, with a single
// flat map[uint64]Payload per level keyed by the pre-folded parent+word
// pair, and replaces its frequency Count with the ARPA (prob, back-off)
// pair the specification asks for.
package c2dm

import (
	"fmt"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/pairing"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/level1"
)

// Trie is the Context->Data Map back-end.
type Trie struct {
	level1 level1.Array
	maps   [lm.MaxOrder + 1]map[uint64]lm.Payload // indices 2..MaxOrder-1
	top    map[uint64]lm.TopPayload                // level MaxOrder
}

// New constructs an empty C2DM trie. cfg is accepted for interface
// symmetry with the dynamic variants; C2DM ignores it since its map-based
// levels need no growth policy.
func New(cfg trie.Config) *Trie {
	t := &Trie{}
	for m := 2; m < lm.MaxOrder; m++ {
		t.maps[m] = make(map[uint64]lm.Payload)
	}
	t.top = make(map[uint64]lm.TopPayload)
	return t
}

func (t *Trie) Variant() trie.Variant { return trie.C2DM }

func (t *Trie) Preallocate(counts trie.Counts) error {
	t.level1.Preallocate(counts[1])
	for m := 2; m < lm.MaxOrder; m++ {
		t.maps[m] = make(map[uint64]lm.Payload, counts[m])
	}
	t.top = make(map[uint64]lm.TopPayload, counts[lm.MaxOrder])
	return nil
}

// keyForPrefix folds an id sequence into the Szudzik-paired key naming the
// m-gram it identifies; this is also, by construction, the context-id a
// longer m-gram would use as its parent.
func keyForPrefix(ids lm.NGram) uint64 {
	ctx := uint64(ids[0])
	for i := 1; i < len(ids); i++ {
		ctx = pairing.Szudzik(uint64(ids[i]), ctx)
	}
	return ctx
}

func (t *Trie) AddNGram(level int, ids lm.NGram, payload lm.Payload) error {
	if level == 1 {
		t.level1.Insert(ids[0], payload)
		return nil
	}
	if level < 2 || level >= lm.MaxOrder {
		return fmt.Errorf("c2dm: AddNGram called with level %d, want 2..%d", level, lm.MaxOrder-1)
	}
	t.maps[level][keyForPrefix(ids)] = payload
	return nil
}

func (t *Trie) AddTopNGram(ids lm.NGram, payload lm.TopPayload) error {
	if len(ids) != lm.MaxOrder {
		return fmt.Errorf("c2dm: AddTopNGram expects %d ids, got %d", lm.MaxOrder, len(ids))
	}
	t.top[keyForPrefix(ids)] = payload
	return nil
}

// PostLevel is a no-op: C2DM's map levels need no sorting or shrinking.
func (t *Trie) PostLevel(level int) error { return nil }

func (t *Trie) Get1GramPayload(id lm.WordID) lm.Payload {
	return t.level1.Get(id)
}

func (t *Trie) GetMGramPayload(ids lm.NGram) (lm.Payload, bool) {
	level := len(ids)
	if level < 2 || level >= lm.MaxOrder {
		return lm.Payload{}, false
	}
	p, ok := t.maps[level][keyForPrefix(ids)]
	return p, ok
}

func (t *Trie) GetNGramProb(ids lm.NGram) (float32, bool) {
	if len(ids) != lm.MaxOrder {
		return 0, false
	}
	p, ok := t.top[keyForPrefix(ids)]
	if !ok {
		return 0, false
	}
	return p.Prob, true
}
