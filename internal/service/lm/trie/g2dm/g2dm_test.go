package g2dm

import (
	"testing"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/trie"
)

func newTestTrie() *Trie {
	return New(trie.Config{BucketsPerGDM: 0.5})
}

func TestUnigramRoundTrip(t *testing.T) {
	tr := newTestTrie()
	tr.AddNGram(1, lm.NGram{5}, lm.Payload{Prob: -1.5, Back: -0.2})
	got := tr.Get1GramPayload(5)
	if got.Prob != -1.5 || got.Back != -0.2 {
		t.Fatalf("Get1GramPayload(5) = %+v, want {-1.5 -0.2}", got)
	}
}

func TestBigramRoundTripAcrossManyBuckets(t *testing.T) {
	tr := newTestTrie()
	counts := trie.Counts{}
	counts[1] = 50
	counts[2] = 100
	if err := tr.Preallocate(counts); err != nil {
		t.Fatalf("Preallocate: %v", err)
	}

	type pair struct {
		a, b lm.WordID
	}
	pairs := make([]pair, 0, 100)
	for a := lm.WordID(1); a <= 10; a++ {
		for b := lm.WordID(1); b <= 10; b++ {
			pairs = append(pairs, pair{a, b})
		}
	}
	for _, p := range pairs {
		if err := tr.AddNGram(2, lm.NGram{p.a, p.b}, lm.Payload{Prob: -float32(p.a), Back: -float32(p.b)}); err != nil {
			t.Fatalf("AddNGram(%d,%d): %v", p.a, p.b, err)
		}
	}
	if err := tr.PostLevel(2); err != nil {
		t.Fatalf("PostLevel(2): %v", err)
	}

	for _, p := range pairs {
		got, ok := tr.GetMGramPayload(lm.NGram{p.a, p.b})
		if !ok {
			t.Fatalf("GetMGramPayload(%d,%d) not found", p.a, p.b)
		}
		if got.Prob != -float32(p.a) || got.Back != -float32(p.b) {
			t.Fatalf("GetMGramPayload(%d,%d) = %+v, want {%v %v}", p.a, p.b, got, -float32(p.a), -float32(p.b))
		}
	}

	if _, ok := tr.GetMGramPayload(lm.NGram{11, 11}); ok {
		t.Fatalf("GetMGramPayload(11,11) found, want miss")
	}
}

func TestTopLevelLookup(t *testing.T) {
	tr := newTestTrie()
	if err := tr.AddTopNGram(lm.NGram{1, 2, 3, 4, 5}, lm.TopPayload{Prob: -0.9}); err != nil {
		t.Fatalf("AddTopNGram: %v", err)
	}
	if err := tr.AddTopNGram(lm.NGram{5, 4, 3, 2, 1}, lm.TopPayload{Prob: -1.9}); err != nil {
		t.Fatalf("AddTopNGram: %v", err)
	}
	if err := tr.PostLevel(lm.MaxOrder); err != nil {
		t.Fatalf("PostLevel: %v", err)
	}

	prob, ok := tr.GetNGramProb(lm.NGram{1, 2, 3, 4, 5})
	if !ok || prob != -0.9 {
		t.Fatalf("GetNGramProb(1,2,3,4,5) = (%v, %v), want (-0.9, true)", prob, ok)
	}
	prob, ok = tr.GetNGramProb(lm.NGram{5, 4, 3, 2, 1})
	if !ok || prob != -1.9 {
		t.Fatalf("GetNGramProb(5,4,3,2,1) = (%v, %v), want (-1.9, true)", prob, ok)
	}
	if _, ok := tr.GetNGramProb(lm.NGram{1, 1, 1, 1, 1}); ok {
		t.Fatalf("GetNGramProb for unknown sequence found, want miss")
	}
}

func TestVariantIdentifier(t *testing.T) {
	tr := newTestTrie()
	if tr.Variant() != trie.G2DM {
		t.Fatalf("Variant() = %v, want G2DM", tr.Variant())
	}
}
