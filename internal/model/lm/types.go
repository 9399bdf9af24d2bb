// Package lm holds the data types shared by every trie variant, the word
// index and the ARPA ingester: word identifiers, context identifiers and
// m-gram payloads.
package lm

import "math"

// WordID identifies a token inside the vocabulary. Ids are dense and
// monotonically issued during 1-gram ingest.
type WordID uint32

// ContextID names an (m-1)-gram within one level of a layered trie. Context
// ids are internal to a trie level and are never comparable across levels
// or across trie variants.
type ContextID uint32

const (
	// UndefinedWordID is the sentinel for "no word".
	UndefinedWordID WordID = 0
	// UnknownWordID is the id reserved for the <unk> token.
	UnknownWordID WordID = 1
	// FirstWordID is the first id a real vocabulary token may receive.
	FirstWordID WordID = 2

	// UndefinedContextID marks "no context"; the first legal context id is 1.
	UndefinedContextID ContextID = 0
	// FirstContextID is the first id a real context may receive.
	FirstContextID ContextID = 1
)

const (
	// ZeroLogProb is the default log-probability assigned to <unk>.
	ZeroLogProb float32 = -10.0
	// ZeroBackOff is the neutral back-off weight, applied whenever a stored
	// ARPA line carries no back-off field.
	ZeroBackOff float32 = 0.0
)

// UndefLogProb marks a payload slot that was never written.
var UndefLogProb = float32(math.Inf(1))

// MaxOrder is the compile-time N-gram order. All trie arrays are statically
// sized by this constant; the reference configuration of the model uses 5.
const MaxOrder = 5

// Payload is the value stored for an m-gram with 1 <= m < MaxOrder: a
// base-10 log-probability plus a base-10 log back-off weight.
type Payload struct {
	Prob float32
	Back float32
}

// TopPayload is the value stored for an m-gram at level MaxOrder, which
// carries no back-off weight since there is no level MaxOrder+1 to fall
// back from.
type TopPayload struct {
	Prob float32
}

// NGram is an ordered sequence of word ids identifying one m-gram.
type NGram []WordID

// Context returns the (m-1)-prefix of the n-gram.
func (g NGram) Context() NGram {
	if len(g) <= 1 {
		return NGram{}
	}
	return g[:len(g)-1]
}

// Last returns the final word id of the n-gram.
func (g NGram) Last() WordID {
	if len(g) == 0 {
		return UndefinedWordID
	}
	return g[len(g)-1]
}

// Level returns the length of the n-gram, i.e. its m.
func (g NGram) Level() int {
	return len(g)
}
