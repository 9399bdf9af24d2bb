// Package g2dm implements the Gram->Data Map trie variant (§4.5.6): rather
// than threading context-ids level by level, each m-gram's entire word-id
// sequence is hashed once to select one of a fixed number of buckets, and
// within a bucket entries are kept as compact, byte-packed m-gram ids
// (package mgramid) in sorted order for binary search. This trades the
// per-level indirection the other five variants pay for a single hash and
// a bucket scan, at the cost of storing each m-gram's full sequence
// (compactly) rather than just its last word-id or context-id.
package g2dm

import (
	"fmt"
	"hash/fnv"
	"sort"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/mgramid"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/level1"
)

// defaultBucketsFactor is the default ratio of buckets to m-grams at a
// level, chosen so each bucket holds ~10 entries on average.
const defaultBucketsFactor = 0.1

type rawEntry struct {
	ids     []uint32
	payload lm.Payload
}

type rawTopEntry struct {
	ids  []uint32
	prob float32
}

type bucketEntry struct {
	id      mgramid.ID
	payload lm.Payload
}

type topBucketEntry struct {
	id   mgramid.ID
	prob float32
}

// Trie is the Gram->Data Map back-end.
type Trie struct {
	level1 level1.Array

	bucketsFactor float64

	// vocabMaxID is the largest word id observed anywhere in the
	// vocabulary: seeded from Preallocate's declared 1-gram count (the
	// ARPA header fixes the whole vocabulary before any higher-order
	// section is read) and widened, defensively, by any larger id
	// actually passed to AddNGram/AddTopNGram. width is derived from it
	// once and reused for every level, per §4.4: a single shared width
	// keyed off the vocabulary-wide maximum, not a per-level one, so a
	// word id absent from one level's m-grams still packs and compares
	// correctly there.
	vocabMaxID uint32
	width      mgramid.Width

	// During ingest (before PostLevel(level) runs), raw[level][bucket]
	// accumulates entries in whatever order they arrive.
	raw        [lm.MaxOrder + 1]map[uint64][]rawEntry
	numBuckets [lm.MaxOrder + 1]uint64

	// sorted[level][bucket] holds the packed, sorted entries once
	// PostLevel(level) has run.
	sorted [lm.MaxOrder + 1]map[uint64][]bucketEntry

	topRaw        map[uint64][]rawTopEntry
	topNumBuckets uint64
	topSorted     map[uint64][]topBucketEntry
}

// New constructs an empty G2DM trie. cfg.BucketsPerGDM, when non-zero,
// overrides the default buckets-per-m-gram ratio.
func New(cfg trie.Config) *Trie {
	factor := cfg.BucketsPerGDM
	if factor <= 0 {
		factor = defaultBucketsFactor
	}
	t := &Trie{bucketsFactor: factor}
	for m := 2; m < lm.MaxOrder; m++ {
		t.raw[m] = make(map[uint64][]rawEntry)
		t.numBuckets[m] = 1
	}
	t.topRaw = make(map[uint64][]rawTopEntry)
	t.topNumBuckets = 1
	return t
}

func (t *Trie) Variant() trie.Variant { return trie.G2DM }

func (t *Trie) Preallocate(counts trie.Counts) error {
	t.level1.Preallocate(counts[1])
	for m := 2; m < lm.MaxOrder; m++ {
		t.numBuckets[m] = bucketCountFor(counts[m], t.bucketsFactor)
		t.raw[m] = make(map[uint64][]rawEntry)
	}
	t.topNumBuckets = bucketCountFor(counts[lm.MaxOrder], t.bucketsFactor)
	t.topRaw = make(map[uint64][]rawTopEntry)
	t.growVocabMaxID(uint32(counts[1]))
	return nil
}

// growVocabMaxID widens the vocabulary-wide word-id bound (and, with it,
// the packed-id width every level shares) whenever a larger id than any
// seen so far is observed.
func (t *Trie) growVocabMaxID(id uint32) {
	if id <= t.vocabMaxID {
		return
	}
	t.vocabMaxID = id
	t.width = mgramid.WidthFor(t.vocabMaxID)
}

func bucketCountFor(count int, factor float64) uint64 {
	n := uint64(float64(count) * factor)
	if n < 1 {
		n = 1
	}
	return n
}

// sequenceHash hashes a whole m-gram's word-ids with FNV-1a to pick its
// bucket. The Bitmap Hash Cache uses its own cache.Fingerprint instead.
func sequenceHash(ids []uint32) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, id := range ids {
		buf[0] = byte(id >> 24)
		buf[1] = byte(id >> 16)
		buf[2] = byte(id >> 8)
		buf[3] = byte(id)
		h.Write(buf[:])
	}
	return h.Sum64()
}

func toUint32s(ids lm.NGram) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func maxOf(ids []uint32) uint32 {
	var m uint32
	for _, id := range ids {
		if id > m {
			m = id
		}
	}
	return m
}

func (t *Trie) AddNGram(level int, ids lm.NGram, payload lm.Payload) error {
	if level == 1 {
		t.level1.Insert(ids[0], payload)
		t.growVocabMaxID(uint32(ids[0]))
		return nil
	}
	if level < 2 || level >= lm.MaxOrder {
		return fmt.Errorf("g2dm: AddNGram called with level %d, want 2..%d", level, lm.MaxOrder-1)
	}
	raw := toUint32s(ids)
	t.growVocabMaxID(maxOf(raw))
	bucket := sequenceHash(raw) % t.numBuckets[level]
	t.raw[level][bucket] = append(t.raw[level][bucket], rawEntry{ids: raw, payload: payload})
	return nil
}

func (t *Trie) AddTopNGram(ids lm.NGram, payload lm.TopPayload) error {
	if len(ids) != lm.MaxOrder {
		return fmt.Errorf("g2dm: AddTopNGram expects %d ids, got %d", lm.MaxOrder, len(ids))
	}
	raw := toUint32s(ids)
	t.growVocabMaxID(maxOf(raw))
	bucket := sequenceHash(raw) % t.topNumBuckets
	t.topRaw[bucket] = append(t.topRaw[bucket], rawTopEntry{ids: raw, prob: payload.Prob})
	return nil
}

func (t *Trie) PostLevel(level int) error {
	if level == 1 {
		return nil
	}
	if level == lm.MaxOrder {
		t.topSorted = make(map[uint64][]topBucketEntry, len(t.topRaw))
		for bucket, entries := range t.topRaw {
			packed := make([]topBucketEntry, len(entries))
			for i, e := range entries {
				packed[i] = topBucketEntry{id: mgramid.Build(t.width, e.ids), prob: e.prob}
			}
			sort.Slice(packed, func(i, j int) bool {
				return mgramid.Compare(packed[i].id, packed[j].id) < 0
			})
			t.topSorted[bucket] = packed
		}
		t.topRaw = nil
		return nil
	}

	t.sorted[level] = make(map[uint64][]bucketEntry, len(t.raw[level]))
	for bucket, entries := range t.raw[level] {
		packed := make([]bucketEntry, len(entries))
		for i, e := range entries {
			packed[i] = bucketEntry{id: mgramid.Build(t.width, e.ids), payload: e.payload}
		}
		sort.Slice(packed, func(i, j int) bool {
			return mgramid.Compare(packed[i].id, packed[j].id) < 0
		})
		t.sorted[level][bucket] = packed
	}
	t.raw[level] = nil
	return nil
}

func (t *Trie) Get1GramPayload(id lm.WordID) lm.Payload {
	return t.level1.Get(id)
}

func (t *Trie) GetMGramPayload(ids lm.NGram) (lm.Payload, bool) {
	level := len(ids)
	if level < 2 || level >= lm.MaxOrder {
		return lm.Payload{}, false
	}
	if t.sorted[level] == nil {
		return lm.Payload{}, false
	}
	raw := toUint32s(ids)
	bucket := sequenceHash(raw) % maxU64(t.numBuckets[level], 1)
	entries, ok := t.sorted[level][bucket]
	if !ok {
		return lm.Payload{}, false
	}
	needle := mgramid.Build(t.width, raw)
	idx := sort.Search(len(entries), func(i int) bool {
		return mgramid.Compare(entries[i].id, needle) >= 0
	})
	if idx < len(entries) && mgramid.Equal(entries[idx].id, needle) {
		return entries[idx].payload, true
	}
	return lm.Payload{}, false
}

func (t *Trie) GetNGramProb(ids lm.NGram) (float32, bool) {
	if len(ids) != lm.MaxOrder {
		return 0, false
	}
	if t.topSorted == nil {
		return 0, false
	}
	raw := toUint32s(ids)
	bucket := sequenceHash(raw) % maxU64(t.topNumBuckets, 1)
	entries, ok := t.topSorted[bucket]
	if !ok {
		return 0, false
	}
	needle := mgramid.Build(t.width, raw)
	idx := sort.Search(len(entries), func(i int) bool {
		return mgramid.Compare(entries[i].id, needle) >= 0
	})
	if idx < len(entries) && mgramid.Equal(entries[idx].id, needle) {
		return entries[idx].prob, true
	}
	return 0, false
}

func maxU64(v, min uint64) uint64 {
	if v < min {
		return min
	}
	return v
}
