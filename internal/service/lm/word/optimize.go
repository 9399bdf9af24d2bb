package word

import (
	"hash/fnv"

	lm "github.com/arpalm/golm/internal/model/lm"
)

// bucketEntry is one slot of the optimised lookup table: the token text
// (needed to resolve collisions within a bucket) plus its word id.
type bucketEntry struct {
	token string
	id    lm.WordID
}

// Optimized wraps a built Index with a fixed-capacity, hash-bucketed
// lookup table, the same trade the teacher's trie makes when it swaps a
// plain map for a fingerprint-keyed structure: one non-cryptographic hash,
// one modulo, one short in-bucket scan, no resize ever. Build it once,
// after every token has been registered; it is read-only thereafter.
type Optimized struct {
	buckets [][]bucketEntry
	mask    uint64
}

// bucketsPerWordFactor is the "buckets ~= 10x|V|" sizing rule from the
// word index specification.
const bucketsPerWordFactor = 10

// NewOptimized rebuilds idx's token->id map into a fixed-capacity
// hash-bucketed table. idx must have already run Finalize.
func NewOptimized(idx *Index) *Optimized {
	n := idx.VocabularySize()
	numBuckets := nextPowerOfTwo(uint64(n)*bucketsPerWordFactor + 1)
	if numBuckets == 0 {
		numBuckets = 1
	}
	opt := &Optimized{
		buckets: make([][]bucketEntry, numBuckets),
		mask:    numBuckets - 1,
	}
	for tok, id := range idx.tokenToID {
		b := opt.bucketFor(tok)
		opt.buckets[b] = append(opt.buckets[b], bucketEntry{token: tok, id: id})
	}
	return opt
}

func (o *Optimized) bucketFor(token string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return h.Sum64() & o.mask
}

// Get resolves a token through a single hash, modulo and bucket scan.
func (o *Optimized) Get(token string) lm.WordID {
	for _, e := range o.buckets[o.bucketFor(token)] {
		if e.token == token {
			return e.id
		}
	}
	return lm.UnknownWordID
}

func nextPowerOfTwo(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}
