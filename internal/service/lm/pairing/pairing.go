// Package pairing implements the Szudzik pairing function used by the
// context-keyed trie variants (C2DM, C2DH) to fold a word id and a parent
// context id into a single 64-bit key.
//
// This is plain integer arithmetic with no external library surface to
// exercise; the pack carries no pairing-function dependency, so it is
// implemented directly on uint64 as the teacher does for its own
// fingerprint-style keys (hash/fnv by hand in ngram_trie.go's
// tokensToKey).
package pairing

// Szudzik folds two non-negative integers into one 64-bit value. For
// x, y < 2^32 distinct (x, y) pairs map to distinct results; larger inputs
// wrap modulo 2^64 and can collide (Szudzik(0, 1<<32) == Szudzik(0, 0)).
func Szudzik(x, y uint64) uint64 {
	if x >= y {
		return x*x + x + y
	}
	return y*y + x
}
