// Package cache implements the Bitmap Hash Cache: a per-level Bloom-style
// negative filter that lets the query engine reject a doomed trie lookup
// without touching the main index. It is grounded on the bloom filter the
// teacher's trie keeps for singleton detection, generalised from a
// whole-filter existence test into one filter per m-gram level, each
// addressed directly by a precomputed 64-bit fingerprint rather than by
// re-hashing token bytes.
package cache

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bloom/v3"
)

// BucketsFactor is the reference multiplier from the specification:
// buckets = bucketsFactor * count_of_m_grams_at_this_level.
const BucketsFactor = 20

// Cache holds one Bloom-style filter per m-gram level >= 2. A nil *Cache,
// or a level with no filter configured, makes MayContain trivially report
// true so the query engine's back-off logic is unaffected when the cache
// is disabled.
type Cache struct {
	enabled       bool
	bucketsFactor uint
	filters       map[int]*bloom.BloomFilter
}

// New creates an empty cache. When enabled is false, MayContain always
// returns true and Record is a no-op, so the cache can be switched off at
// construction time. No trie variant carries a flag of its own for this;
// model.Build enables the cache for every variant.
func New(enabled bool, bucketsFactor uint) *Cache {
	if bucketsFactor == 0 {
		bucketsFactor = BucketsFactor
	}
	return &Cache{
		enabled:       enabled,
		bucketsFactor: bucketsFactor,
		filters:       make(map[int]*bloom.BloomFilter),
	}
}

// SizeLevel allocates the filter for level, sized from the declared count
// of m-grams at that level. It is called once the ARPA header has been
// parsed, mirroring how the ingester sizes trie level-1 arrays.
func (c *Cache) SizeLevel(level int, countAtLevel int) {
	if c == nil || !c.enabled {
		return
	}
	m := uint(countAtLevel) * c.bucketsFactor
	if m == 0 {
		m = c.bucketsFactor
	}
	// k=1: the cache is a single-bit-per-slot bitmap, not a multi-hash
	// Bloom filter; one hash selects one bit per fingerprint.
	c.filters[level] = bloom.New(m, 1)
}

// Record sets the bit for fingerprint at level. Called once per inserted
// m-gram during ARPA ingest.
func (c *Cache) Record(level int, fingerprint uint64) {
	if c == nil || !c.enabled {
		return
	}
	f, ok := c.filters[level]
	if !ok {
		return
	}
	f.Add(fingerprintBytes(fingerprint))
}

// MayContain tests the bit for fingerprint at level. False means the
// m-gram is definitely absent; true means "look further" and is also the
// answer whenever the cache is disabled or the level was never sized.
func (c *Cache) MayContain(level int, fingerprint uint64) bool {
	if c == nil || !c.enabled {
		return true
	}
	f, ok := c.filters[level]
	if !ok {
		return true
	}
	return f.Test(fingerprintBytes(fingerprint))
}

func fingerprintBytes(fp uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], fp)
	return b[:]
}

// Fingerprint computes the 64-bit fingerprint of an ordered word-id
// sequence: a multiply-xor-shift mix of the concatenated ids, per the
// specification's free choice of hash function. Consistency within one
// build is the only hard requirement, so any id-aware 64-bit mix works.
func Fingerprint(wordIDs []uint32) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis, reused as a seed
	for _, id := range wordIDs {
		h ^= uint64(id)
		h *= 1099511628211 // FNV prime
		h ^= h >> 33
	}
	return h
}
