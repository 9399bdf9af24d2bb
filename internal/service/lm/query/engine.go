// Package query implements the Query Engine (§4.7): resolves a sequence
// of 1..N tokens to a log-probability using Katz-style back-off, sharing
// work across the whole sequence via a triangular cache of sub-m-gram
// payloads when run in cumulative mode.
package query

import (
	"fmt"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/cache"
	"github.com/arpalm/golm/internal/service/lm/trie"
)

// Mode selects between the two query shapes in §4.7.
type Mode int

const (
	// Single returns log P(w_k | w_1..w_k-1) only.
	Single Mode = iota
	// Cumulative returns log P(w_i | w_1..w_i-1) for every i, plus their sum.
	Cumulative
)

// Result is what a query produces. PerPosition is populated only in
// Cumulative mode; Sum is the single result in Single mode and the sum of
// PerPosition in Cumulative mode.
type Result struct {
	PerPosition []float32
	Sum         float32
}

// Resolver is the token->id lookup surface the engine needs from a Word
// Index. Both *word.Index and its hash-bucketed *word.Optimized wrapper
// satisfy it, so the "optimizing_basic"/"optimizing_counting" index kinds
// plug in without the engine knowing which one it was handed.
type Resolver interface {
	Get(token string) lm.WordID
}

// Engine answers queries against one built index+trie+cache bundle. It
// holds no mutable state of its own; every query allocates its own
// triangular cache, so one Engine may be shared and queried concurrently
// even though nothing in this package takes a lock (per §5, the built
// model is read-only).
type Engine struct {
	index  Resolver
	trie   trie.Trie
	bitmap *cache.Cache
}

// New constructs a query engine over an already-built index, trie and
// bitmap cache.
func New(index Resolver, tr trie.Trie, bitmap *cache.Cache) *Engine {
	return &Engine{index: index, trie: tr, bitmap: bitmap}
}

// entry is one memoized sub-m-gram lookup result.
type entry struct {
	payload lm.Payload
	found   bool
	done    bool
}

// session holds the per-query triangular cache and the resolved word-ids;
// it exists only for the lifetime of one Query call.
type session struct {
	e     *Engine
	ids   lm.NGram
	cache [][]entry
}

// Query resolves tokens (length 1..MaxOrder) to a Result. Malformed input
// (empty, or longer than MaxOrder) is the only error condition; back-off
// is never an error; the result is always a finite log-probability, the
// ultimate floor being lm.ZeroLogProb via the <unk> uni-gram.
func (e *Engine) Query(tokens []string, mode Mode) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, fmt.Errorf("query: empty query")
	}
	if len(tokens) > lm.MaxOrder {
		return Result{}, fmt.Errorf("query: length %d exceeds max order %d", len(tokens), lm.MaxOrder)
	}

	k := len(tokens)
	ids := make(lm.NGram, k)
	for i, tok := range tokens {
		ids[i] = e.index.Get(tok)
	}

	s := &session{e: e, ids: ids, cache: make([][]entry, k)}
	for i := range s.cache {
		s.cache[i] = make([]entry, k)
	}

	if mode == Single {
		return Result{Sum: s.column(k - 1)}, nil
	}

	perPosition := make([]float32, k)
	var sum float32
	for end := 0; end < k; end++ {
		v := s.column(end)
		perPosition[end] = v
		sum += v
	}
	return Result{PerPosition: perPosition, Sum: sum}, nil
}

// column computes log P(w_end | w_begin..w_end-1) starting from the
// widest possible context (begin=0) and shrinking it by one word on every
// miss, per the back-off state machine in §4.7. It always terminates,
// since the begin==end case (a uni-gram) always succeeds.
func (s *session) column(end int) float32 {
	var total float32
	begin := 0
	for {
		payload, found := s.lookup(begin, end)
		if found {
			total += payload.Prob
			return total
		}
		ctxPayload, ctxFound := s.lookup(begin, end-1)
		if ctxFound {
			total += ctxPayload.Back
		} else {
			total += lm.ZeroBackOff
		}
		begin++
	}
}

// lookup returns the memoized (or freshly computed) payload for the
// sub-m-gram s.ids[begin:end+1]. A uni-gram (begin==end) always succeeds.
// Any sub-m-gram containing an unknown word is treated as missing without
// ever calling the trie, since no m-gram of length > 1 in the model
// contains the unknown word. The Bitmap Hash Cache is consulted before
// every other trie call; a may_contain=false is equivalent to a miss.
func (s *session) lookup(begin, end int) (lm.Payload, bool) {
	if begin > end {
		return lm.Payload{}, false
	}
	if s.cache[begin][end].done {
		e := s.cache[begin][end]
		return e.payload, e.found
	}

	var payload lm.Payload
	var found bool

	switch {
	case begin == end:
		payload = s.e.trie.Get1GramPayload(s.ids[begin])
		found = true

	case s.containsUnknown(begin, end):
		found = false

	default:
		sub := s.ids[begin : end+1]
		level := end - begin + 1
		raw := make([]uint32, len(sub))
		for i, id := range sub {
			raw[i] = uint32(id)
		}
		fp := cache.Fingerprint(raw)
		if !s.e.bitmap.MayContain(level, fp) {
			found = false
			break
		}
		if level == lm.MaxOrder {
			prob, ok := s.e.trie.GetNGramProb(sub)
			payload, found = lm.Payload{Prob: prob}, ok
		} else {
			payload, found = s.e.trie.GetMGramPayload(sub)
		}
	}

	s.cache[begin][end] = entry{payload: payload, found: found, done: true}
	return payload, found
}

func (s *session) containsUnknown(begin, end int) bool {
	for i := begin; i <= end; i++ {
		if s.ids[i] == lm.UnknownWordID {
			return true
		}
	}
	return false
}
