// Package level1 implements the dense, word-id-indexed level-1 array
// shared by every trie variant: "Level 1 is a dense array indexed by
// word-id, as in the other variants" (§4.5.1, §4.5.6).
package level1

import lm "github.com/arpalm/golm/internal/model/lm"

// Array is the level-1 payload table. Index 1 (UnknownWordID) always
// holds the <unk> payload; unknown words resolve to it at query time.
type Array struct {
	payloads []lm.Payload
	set      []bool
}

// Preallocate sizes the array to hold at least countWords entries.
func (a *Array) Preallocate(countWords int) {
	if countWords <= 0 {
		countWords = 1
	}
	a.payloads = make([]lm.Payload, countWords)
	a.set = make([]bool, countWords)
}

// Insert stores the payload for id, growing the array if the id exceeds
// the pre-allocated bound (the ARPA header's declared count can
// undercount when producers disagree with it).
func (a *Array) Insert(id lm.WordID, payload lm.Payload) {
	idx := int(id)
	if idx >= len(a.payloads) {
		grown := make([]lm.Payload, idx+1)
		copy(grown, a.payloads)
		a.payloads = grown
		grownSet := make([]bool, idx+1)
		copy(grownSet, a.set)
		a.set = grownSet
	}
	a.payloads[idx] = payload
	a.set[idx] = true
}

// Get always succeeds: an id with no stored payload (including any
// out-of-vocabulary id, which callers normalise to UnknownWordID before
// calling) resolves to the payload stored for UnknownWordID.
func (a *Array) Get(id lm.WordID) lm.Payload {
	idx := int(id)
	if idx < len(a.payloads) && a.set[idx] {
		return a.payloads[idx]
	}
	if int(lm.UnknownWordID) < len(a.payloads) && a.set[lm.UnknownWordID] {
		return a.payloads[lm.UnknownWordID]
	}
	return lm.Payload{Prob: lm.ZeroLogProb, Back: lm.ZeroBackOff}
}
