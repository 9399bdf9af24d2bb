// Package trie defines the common contract every trie back-end
// implements (§4.5 of the store's design) and the variant selector used
// to construct one.
//
// Every variant is built, ingested into and queried through this
// interface: the ingester, the tests and the query engine (package query)
// all hold a Trie interface value, so each lookup is a dynamically
// dispatched call. No call site is specialised to a concrete variant type.
package trie

import lm "github.com/arpalm/golm/internal/model/lm"

// Variant names one of the six interchangeable trie back-ends.
type Variant int

const (
	C2DM Variant = iota // Context->Data Map
	C2DH                 // Context->Data Hybrid
	C2WA                 // Context->Word Array (sorted)
	W2CH                 // Word->Context Hybrid
	W2CA                 // Word->Context Array (sorted, dynamic)
	G2DM                 // Gram->Data Map (bucketed)
)

func (v Variant) String() string {
	switch v {
	case C2DM:
		return "C2DM"
	case C2DH:
		return "C2DH"
	case C2WA:
		return "C2WA"
	case W2CH:
		return "W2CH"
	case W2CA:
		return "W2CA"
	case G2DM:
		return "G2DM"
	default:
		return "unknown"
	}
}

// Counts gives the per-level m-gram counts declared in the ARPA header,
// indexed 1..MaxOrder (Counts[0] is unused).
type Counts [lm.MaxOrder + 1]int

// Trie is the capability set every back-end exposes. The query engine
// (query.New) consumes this interface directly.
type Trie interface {
	// Preallocate is called once, after the ARPA header, with the
	// per-level m-gram counts.
	Preallocate(counts Counts) error

	// AddNGram inserts an m-gram for 1 <= level < MaxOrder, in ARPA order.
	AddNGram(level int, ids lm.NGram, payload lm.Payload) error

	// AddTopNGram inserts an m-gram at level == MaxOrder, which carries no
	// back-off weight.
	AddTopNGram(ids lm.NGram, payload lm.TopPayload) error

	// PostLevel runs after every m-gram of level has been ingested; it
	// sorts sub-arrays, shrinks capacities and builds level-end indices.
	PostLevel(level int) error

	// Get1GramPayload always succeeds; an unknown word resolves to the
	// payload stored for UnknownWordID.
	Get1GramPayload(id lm.WordID) lm.Payload

	// GetMGramPayload looks up an m-gram for 1 < level < MaxOrder.
	GetMGramPayload(ids lm.NGram) (lm.Payload, bool)

	// GetNGramProb looks up an m-gram at level == MaxOrder.
	GetNGramProb(ids lm.NGram) (float32, bool)

	// Variant identifies which back-end this is, for diagnostics.
	Variant() Variant
}

// Config parameterises construction of any trie variant. The Bitmap Hash
// Cache is not part of this config: per §4.7 it is consulted by the query
// engine, not by the trie itself, so it is owned by the model that builds
// both and wired directly into the query engine.
type Config struct {
	// GrowthFn/GrowthMinInc/GrowthFactor configure the Memory Growth
	// Strategy used by W2CA's per-word arrays. Every other variant ignores
	// them, G2DM included: its per-bucket arrays are plain Go slices grown
	// by append.
	GrowthFn     int
	GrowthMinInc int
	GrowthFactor float64
	// BucketsPerGDM, when set, overrides G2DM's bucket sizing; 0 selects
	// the package default (words_per_bucket_factor ~= 0.1).
	BucketsPerGDM float64
}
