package arpa

import (
	"strings"
	"testing"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/cache"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/c2dm"
	"github.com/arpalm/golm/internal/service/lm/word"
)

// sliceLineReader is a canned LineReader for tests, avoiding any filesystem
// dependency per the ingester's LineReader contract.
type sliceLineReader struct {
	lines []string
	pos   int
}

func newLineReader(text string) *sliceLineReader {
	return &sliceLineReader{lines: strings.Split(strings.TrimSpace(text), "\n")}
}

func (r *sliceLineReader) NextLine() (string, bool) {
	if r.pos >= len(r.lines) {
		return "", false
	}
	line := r.lines[r.pos]
	r.pos++
	return line, true
}

// scenarioA is §8's tiny model: 1-grams {<unk> -10, a -1, b -2}, 2-grams
// {a b prob=-0.5 back=-0.1}, N=2.
const scenarioA = `
\data\
ngram 1=3
ngram 2=1
\1-grams:
-10	<unk>
-1	a
-2	b
\2-grams:
-0.5	a b	-0.1
\end\
`

func TestIngestScenarioA(t *testing.T) {
	idx := word.New(word.Basic)
	tr := c2dm.New(trie.Config{})
	bitmap := cache.New(true, 20)
	ing := New(idx, tr, bitmap, nil)

	if err := ing.Run(newLineReader(scenarioA)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	a := idx.Get("a")
	b := idx.Get("b")
	if a == lm.UnknownWordID || b == lm.UnknownWordID {
		t.Fatalf("expected a and b to be registered, got a=%d b=%d", a, b)
	}

	pa := tr.Get1GramPayload(a)
	if pa.Prob != -1 {
		t.Fatalf("Get1GramPayload(a).Prob = %v, want -1", pa.Prob)
	}
	pb := tr.Get1GramPayload(b)
	if pb.Prob != -2 {
		t.Fatalf("Get1GramPayload(b).Prob = %v, want -2", pb.Prob)
	}

	got, ok := tr.GetMGramPayload(lm.NGram{a, b})
	if !ok {
		t.Fatalf("GetMGramPayload(a,b) not found")
	}
	if got.Prob != -0.5 || got.Back != -0.1 {
		t.Fatalf("GetMGramPayload(a,b) = %+v, want {-0.5 -0.1}", got)
	}

	if ing.Stats.Accepted[1] != 3 {
		t.Fatalf("Accepted[1] = %d, want 3", ing.Stats.Accepted[1])
	}
	if ing.Stats.Accepted[2] != 1 {
		t.Fatalf("Accepted[2] = %d, want 1", ing.Stats.Accepted[2])
	}
}

// scenarioB is §8's back-off chain model.
const scenarioB = `
\data\
ngram 1=4
ngram 2=2
\1-grams:
-10	<unk>
-3	x
-4	y
-5	z
\2-grams:
-1	x y	-0.2
-1.5	y z	0
\end\
`

func TestIngestScenarioBMissingBigramAbsent(t *testing.T) {
	idx := word.New(word.Basic)
	tr := c2dm.New(trie.Config{})
	bitmap := cache.New(true, 20)
	ing := New(idx, tr, bitmap, nil)

	if err := ing.Run(newLineReader(scenarioB)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	x, y, z := idx.Get("x"), idx.Get("y"), idx.Get("z")

	if _, ok := tr.GetMGramPayload(lm.NGram{x, z}); ok {
		t.Fatalf("GetMGramPayload(x,z) found, want miss (never ingested)")
	}

	xy, ok := tr.GetMGramPayload(lm.NGram{x, y})
	if !ok || xy.Prob != -1 || xy.Back != -0.2 {
		t.Fatalf("GetMGramPayload(x,y) = %+v, ok=%v, want {-1 -0.2} true", xy, ok)
	}
	yz, ok := tr.GetMGramPayload(lm.NGram{y, z})
	if !ok || yz.Prob != -1.5 || yz.Back != 0 {
		t.Fatalf("GetMGramPayload(y,z) = %+v, ok=%v, want {-1.5 0} true", yz, ok)
	}
}

func TestIngestToleratesBlankLinesAndMissingBackoff(t *testing.T) {
	const input = `
\data\
ngram 1=2

ngram 2=1
\1-grams:
-10	<unk>
-1	a

\2-grams:
-0.3	a a
\end\
`
	idx := word.New(word.Basic)
	tr := c2dm.New(trie.Config{})
	bitmap := cache.New(false, 20)
	ing := New(idx, tr, bitmap, nil)

	if err := ing.Run(newLineReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	a := idx.Get("a")
	got, ok := tr.GetMGramPayload(lm.NGram{a, a})
	if !ok {
		t.Fatalf("GetMGramPayload(a,a) not found")
	}
	if got.Back != lm.ZeroBackOff {
		t.Fatalf("GetMGramPayload(a,a).Back = %v, want %v (defaulted)", got.Back, lm.ZeroBackOff)
	}
}

func TestIngestSkipsMalformedLineWithoutAborting(t *testing.T) {
	const input = `
\data\
ngram 1=2
\1-grams:
-10	<unk>
notanumber	a
\end\
`
	idx := word.New(word.Basic)
	tr := c2dm.New(trie.Config{})
	bitmap := cache.New(false, 20)
	ing := New(idx, tr, bitmap, nil)

	if err := ing.Run(newLineReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ing.Stats.Skipped[1] != 1 {
		t.Fatalf("Skipped[1] = %d, want 1", ing.Stats.Skipped[1])
	}
}

func TestIngestCountingIndexPermutesBeforeTrieInsert(t *testing.T) {
	const input = `
\data\
ngram 1=3
ngram 2=2
\1-grams:
-10	<unk>
-1	rare
-1	common
\2-grams:
-0.1	common common	0
-0.1	rare common	0
\end\
`
	idx := word.New(word.Counting)
	tr := c2dm.New(trie.Config{})
	bitmap := cache.New(false, 20)
	ing := New(idx, tr, bitmap, nil)

	// "common" appears 3 times as a 2-gram constituent and "rare" once, but
	// Finalize runs before the 2-gram section is read and those occurrences
	// never enter the tally: both tokens tie at count 1 and log-probability
	// -1, so the token-text tie-break decides. Every payload committed to
	// the trie must be addressable under the post-permutation id.
	if err := ing.Run(newLineReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	common := idx.Get("common")
	rare := idx.Get("rare")
	if common == lm.UnknownWordID || rare == lm.UnknownWordID {
		t.Fatalf("expected both tokens registered")
	}

	pc := tr.Get1GramPayload(common)
	if pc.Prob != -1 {
		t.Fatalf("Get1GramPayload(common).Prob = %v, want -1 (post-permutation lookup)", pc.Prob)
	}
	pr := tr.Get1GramPayload(rare)
	if pr.Prob != -1 {
		t.Fatalf("Get1GramPayload(rare).Prob = %v, want -1 (post-permutation lookup)", pr.Prob)
	}

	if _, ok := tr.GetMGramPayload(lm.NGram{common, common}); !ok {
		t.Fatalf("GetMGramPayload(common,common) not found after permutation")
	}
	if _, ok := tr.GetMGramPayload(lm.NGram{rare, common}); !ok {
		t.Fatalf("GetMGramPayload(rare,common) not found after permutation")
	}
}

// TestIngestCountingOrdersByDeclaredProbability covers the case every real
// ARPA file hits: each vocabulary word appears exactly once in \1-grams:,
// so the counting policy's occurrence tally alone ties every token at 1.
// Finalize must fall back to each token's declared log-probability so
// "common" (far likelier, hence a less negative log-probability) still
// sorts ahead of "rare".
func TestIngestCountingOrdersByDeclaredProbability(t *testing.T) {
	const input = `
\data\
ngram 1=3
\1-grams:
-10	<unk>
-5	rare
-1	common
\end\
`
	idx := word.New(word.Counting)
	tr := c2dm.New(trie.Config{})
	bitmap := cache.New(false, 20)
	ing := New(idx, tr, bitmap, nil)

	if err := ing.Run(newLineReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	common := idx.Get("common")
	rare := idx.Get("rare")
	if common == lm.UnknownWordID || rare == lm.UnknownWordID {
		t.Fatalf("expected both tokens registered")
	}
	if !(common < rare) {
		t.Fatalf("expected common (higher probability) to sort before rare, got common=%d rare=%d", common, rare)
	}
}
