// Package word implements the Word Index: the mapping from surface tokens
// to the small integer ids shared by every trie level. It follows the
// string-interning idiom the teacher's n-gram trie uses for its
// tokenToID/idToToken pair, generalised into two interchangeable issuing
// policies (Basic, Counting) plus the read-only hash-bucketed Optimized
// wrapper.
package word

import (
	"sort"

	lm "github.com/arpalm/golm/internal/model/lm"
)

// Kind selects a Word Index issuing policy, per the configuration table in
// the specification's external interfaces section.
type Kind int

const (
	// Basic assigns ids in first-seen order.
	Basic Kind = iota
	// Counting assigns ids in first-seen order during ingest, then
	// re-assigns them in descending frequency order once Finalize runs.
	Counting
)

// UnknownToken is the literal ARPA vocabulary entry bound to the reserved
// lm.UnknownWordID, per the glossary's "UNKNOWN_WORD_ID=1 (the <unk>
// token)" entry. It is pinned at construction time and never takes part
// in the counting policy's frequency permutation, so query-time fallback
// to id 1 always resolves to whatever payload the ARPA file declared for
// it rather than to an arbitrary ordinary word.
const UnknownToken = "<unk>"

// Index maps tokens to word ids and tallies occurrence counts for the
// counting policy. It is not safe for concurrent registration; callers
// build one index per ARPA ingest and then share it read-only for queries.
type Index struct {
	kind      Kind
	tokenToID map[string]lm.WordID
	counts    map[lm.WordID]int64
	// logProbs holds each token's ARPA-declared unigram log-probability,
	// the only frequency signal an ARPA file actually carries: every
	// vocabulary word appears exactly once in \1-grams:, so a raw
	// occurrence tally recorded only from ARPA ingest never discriminates
	// between tokens (every count settles at 1). Finalize falls back to
	// this as a tie-break, descending, so the counting policy still
	// orders more-frequent words first in that case. Callers that invoke
	// Register directly, once per real occurrence, still get a genuine
	// count-based ordering and never reach this fallback.
	logProbs  map[lm.WordID]float32
	nextID    lm.WordID
	finalized bool
}

// New creates a Word Index using the given issuing policy. Ids 0 and 1 are
// reserved system-wide: 0 is never handed out, and 1 is pinned up front to
// UnknownToken so the first id register ever allocates is 2.
func New(kind Kind) *Index {
	idx := &Index{
		kind:      kind,
		tokenToID: make(map[string]lm.WordID),
		nextID:    lm.FirstWordID,
	}
	idx.tokenToID[UnknownToken] = lm.UnknownWordID
	if kind == Counting {
		idx.counts = make(map[lm.WordID]int64)
		idx.logProbs = make(map[lm.WordID]float32)
	}
	return idx
}

// Reserve pre-sizes the internal maps for an expected vocabulary size.
func (idx *Index) Reserve(numWords int) {
	if numWords <= 0 {
		return
	}
	grown := make(map[string]lm.WordID, numWords)
	for k, v := range idx.tokenToID {
		grown[k] = v
	}
	idx.tokenToID = grown
	if idx.kind == Counting {
		grownCounts := make(map[lm.WordID]int64, numWords)
		for k, v := range idx.counts {
			grownCounts[k] = v
		}
		idx.counts = grownCounts
		grownProbs := make(map[lm.WordID]float32, numWords)
		for k, v := range idx.logProbs {
			grownProbs[k] = v
		}
		idx.logProbs = grownProbs
	}
}

// Register assigns a new id to token on first sight and returns the
// existing id on repeat. It is called only during 1-gram ingest, where it
// also tallies the counting policy's frequency counts; m-gram sections
// beyond level 1 resolve tokens through Get instead, which never
// allocates and never revises a count, since Finalize has already fixed
// the permutation by the time those sections are read.
func (idx *Index) Register(token string) lm.WordID {
	id, exists := idx.tokenToID[token]
	if !exists {
		id = idx.nextID
		idx.nextID++
		idx.tokenToID[token] = id
	}
	if idx.kind == Counting {
		idx.counts[id]++
	}
	return id
}

// RecordProbability stores token's ARPA-declared unigram log-probability,
// the fallback frequency signal Finalize consults when the counting
// policy's occurrence tally can't discriminate between tokens (see the
// logProbs field doc). It is a no-op for the Basic policy. token must
// already be registered.
func (idx *Index) RecordProbability(token string, logProb float32) {
	if idx.kind != Counting {
		return
	}
	id, ok := idx.tokenToID[token]
	if !ok {
		return
	}
	idx.logProbs[id] = logProb
}

// Get resolves a token to its word id, returning UnknownWordID if the
// token was never registered. Get never allocates.
func (idx *Index) Get(token string) lm.WordID {
	if id, ok := idx.tokenToID[token]; ok {
		return id
	}
	return lm.UnknownWordID
}

// CountWords returns the upper bound on word ids, used by trie variants to
// size dense per-word arrays. totalOneGramsHint is consulted only when the
// index has not registered any ordinary token yet (e.g. during
// Preallocate, before the 1-gram section has been read); UnknownToken's
// pinned entry never counts as a registration on its own.
func (idx *Index) CountWords(totalOneGramsHint int) uint32 {
	if n := idx.VocabularySize(); n > 0 {
		return uint32(lm.FirstWordID) + uint32(n)
	}
	return uint32(lm.FirstWordID) + uint32(totalOneGramsHint)
}

// VocabularySize returns the number of distinct ordinary registered
// tokens, excluding the pinned UnknownToken entry.
func (idx *Index) VocabularySize() int {
	n := len(idx.tokenToID)
	if _, ok := idx.tokenToID[UnknownToken]; ok {
		n--
	}
	return n
}

// Finalize re-assigns ids in descending frequency order for the Counting
// policy. It must run exactly once, after the 1-gram section has been
// fully ingested and before any m-gram of level > 1 is inserted; every
// later section consults the renumbered ids through Get. For the Basic
// policy this is a no-op.
func (idx *Index) Finalize() {
	if idx.finalized {
		return
	}
	idx.finalized = true
	if idx.kind != Counting {
		return
	}

	type freqToken struct {
		token   string
		id      lm.WordID
		count   int64
		logProb float32
	}
	entries := make([]freqToken, 0, len(idx.tokenToID))
	for tok, id := range idx.tokenToID {
		if tok == UnknownToken {
			// Pinned to UnknownWordID; never takes part in the permutation.
			continue
		}
		entries = append(entries, freqToken{token: tok, id: id, count: idx.counts[id], logProb: idx.logProbs[id]})
	}
	// Descending frequency first. Ties (the common case when every count
	// came from a single ARPA Register call) fall back to descending
	// log-probability, ARPA's own frequency proxy; remaining ties break
	// on token text so the permutation is fully deterministic.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		if entries[i].logProb != entries[j].logProb {
			return entries[i].logProb > entries[j].logProb
		}
		return entries[i].token < entries[j].token
	})

	remapped := make(map[string]lm.WordID, len(entries)+1)
	remappedCounts := make(map[lm.WordID]int64, len(entries)+1)
	remappedProbs := make(map[lm.WordID]float32, len(entries)+1)
	remapped[UnknownToken] = lm.UnknownWordID
	remappedCounts[lm.UnknownWordID] = idx.counts[lm.UnknownWordID]
	remappedProbs[lm.UnknownWordID] = idx.logProbs[lm.UnknownWordID]
	next := lm.FirstWordID
	for _, e := range entries {
		remapped[e.token] = next
		remappedCounts[next] = e.count
		remappedProbs[next] = e.logProb
		next++
	}
	idx.tokenToID = remapped
	idx.counts = remappedCounts
	idx.logProbs = remappedProbs
}

// Permutation returns the current token->id mapping for ordinary tokens,
// excluding the pinned UnknownToken entry. Exposed for testing the
// counting policy's frequency-order invariant.
func (idx *Index) Permutation() map[string]lm.WordID {
	out := make(map[string]lm.WordID, len(idx.tokenToID))
	for k, v := range idx.tokenToID {
		if k == UnknownToken {
			continue
		}
		out[k] = v
	}
	return out
}

// Frequency returns how many times Register was called for token. Only
// meaningful for the Counting policy. Occurrences of the token in m-gram
// sections above level 1 are not counted, since those sections resolve
// tokens through Get.
func (idx *Index) Frequency(token string) int64 {
	if idx.kind != Counting {
		return 0
	}
	id, ok := idx.tokenToID[token]
	if !ok {
		return 0
	}
	return idx.counts[id]
}
