package w2ca

import (
	"testing"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/trie"
)

func newTestTrie() *Trie {
	return New(trie.Config{GrowthFn: 1, GrowthMinInc: 2, GrowthFactor: 1.0})
}

func TestUnigramRoundTrip(t *testing.T) {
	tr := newTestTrie()
	tr.AddNGram(1, lm.NGram{5}, lm.Payload{Prob: -1.5, Back: -0.2})
	got := tr.Get1GramPayload(5)
	if got.Prob != -1.5 || got.Back != -0.2 {
		t.Fatalf("Get1GramPayload(5) = %+v, want {-1.5 -0.2}", got)
	}
}

func TestBigramLookupAfterPostLevel(t *testing.T) {
	tr := newTestTrie()
	tr.AddNGram(1, lm.NGram{1}, lm.Payload{Prob: -1})
	tr.AddNGram(1, lm.NGram{2}, lm.Payload{Prob: -1})
	tr.PostLevel(1)

	if err := tr.AddNGram(2, lm.NGram{1, 2}, lm.Payload{Prob: -0.5, Back: -0.1}); err != nil {
		t.Fatalf("AddNGram(2): %v", err)
	}
	if err := tr.PostLevel(2); err != nil {
		t.Fatalf("PostLevel(2): %v", err)
	}

	got, ok := tr.GetMGramPayload(lm.NGram{1, 2})
	if !ok {
		t.Fatalf("GetMGramPayload(1,2) not found")
	}
	if got.Prob != -0.5 || got.Back != -0.1 {
		t.Fatalf("GetMGramPayload(1,2) = %+v, want {-0.5 -0.1}", got)
	}

	if _, ok := tr.GetMGramPayload(lm.NGram{2, 1}); ok {
		t.Fatalf("GetMGramPayload(2,1) found, want miss")
	}
}

func TestManyBigramsPerWordSortAndGrow(t *testing.T) {
	tr := newTestTrie()
	for w := lm.WordID(1); w <= 20; w++ {
		tr.AddNGram(1, lm.NGram{w}, lm.Payload{Prob: -1})
	}
	tr.PostLevel(1)

	// Insert bigrams (w, 7) for many parent contexts w, in reverse order,
	// to exercise PostLevel's sort.
	for w := lm.WordID(20); w >= 1; w-- {
		if err := tr.AddNGram(2, lm.NGram{w, 7}, lm.Payload{Prob: -float32(w)}); err != nil {
			t.Fatalf("AddNGram(2) w=%d: %v", w, err)
		}
	}
	if err := tr.PostLevel(2); err != nil {
		t.Fatalf("PostLevel(2): %v", err)
	}

	for w := lm.WordID(1); w <= 20; w++ {
		got, ok := tr.GetMGramPayload(lm.NGram{w, 7})
		if !ok {
			t.Fatalf("GetMGramPayload(%d,7) not found", w)
		}
		if got.Prob != -float32(w) {
			t.Fatalf("GetMGramPayload(%d,7).Prob = %v, want %v", w, got.Prob, -float32(w))
		}
	}
}

func TestTopLevelLookup(t *testing.T) {
	tr := newTestTrie()
	for w := lm.WordID(1); w <= 5; w++ {
		tr.AddNGram(1, lm.NGram{w}, lm.Payload{Prob: -1})
	}
	tr.PostLevel(1)
	tr.AddNGram(2, lm.NGram{1, 2}, lm.Payload{Prob: -0.1, Back: -0.05})
	tr.AddNGram(2, lm.NGram{3, 2}, lm.Payload{Prob: -0.2, Back: -0.05})
	tr.PostLevel(2)
	tr.AddNGram(3, lm.NGram{1, 2, 3}, lm.Payload{Prob: -0.3, Back: -0.02})
	tr.PostLevel(3)
	tr.AddNGram(4, lm.NGram{1, 2, 3, 4}, lm.Payload{Prob: -0.4, Back: -0.01})
	tr.PostLevel(4)

	if err := tr.AddTopNGram(lm.NGram{1, 2, 3, 4, 5}, lm.TopPayload{Prob: -0.7}); err != nil {
		t.Fatalf("AddTopNGram: %v", err)
	}
	if err := tr.PostLevel(5); err != nil {
		t.Fatalf("PostLevel(5): %v", err)
	}

	prob, ok := tr.GetNGramProb(lm.NGram{1, 2, 3, 4, 5})
	if !ok || prob != -0.7 {
		t.Fatalf("GetNGramProb = (%v, %v), want (-0.7, true)", prob, ok)
	}

	if _, ok := tr.GetNGramProb(lm.NGram{2, 2, 3, 4, 5}); ok {
		t.Fatalf("GetNGramProb for unknown prefix found, want miss")
	}
}

func TestVariantIdentifier(t *testing.T) {
	tr := newTestTrie()
	if tr.Variant() != trie.W2CA {
		t.Fatalf("Variant() = %v, want W2CA", tr.Variant())
	}
}
