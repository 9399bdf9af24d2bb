package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arpalm/golm/internal/config"
	"github.com/arpalm/golm/internal/service/lm/query"
	"github.com/arpalm/golm/internal/service/lm/trie"
)

const tinyArpa = `
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

func writeArpa(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.arpa")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestBuildDefaultsToC2DM(t *testing.T) {
	path := writeArpa(t, tinyArpa)
	var mcfg config.ModelConfig
	m, err := Build(mcfg, path, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.Variant() != trie.C2DM {
		t.Fatalf("Variant() = %v, want C2DM", m.Variant())
	}

	res, err := m.Query([]string{"a", "b"}, query.Single)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Sum != -0.5 {
		t.Fatalf("Query(a b).Sum = %v, want -0.5", res.Sum)
	}
}

func TestBuildEveryTrieVariant(t *testing.T) {
	path := writeArpa(t, tinyArpa)
	variants := []config.TrieVariant{
		config.VariantC2DM, config.VariantC2DH, config.VariantC2WA,
		config.VariantW2CH, config.VariantW2CA, config.VariantG2DM,
	}
	for _, v := range variants {
		v := v
		t.Run(string(v), func(t *testing.T) {
			mcfg := config.ModelConfig{TrieVariant: v}
			m, err := Build(mcfg, path, nil)
			if err != nil {
				t.Fatalf("Build(%s): %v", v, err)
			}
			res, err := m.Query([]string{"a", "b"}, query.Single)
			if err != nil {
				t.Fatalf("Query(%s): %v", v, err)
			}
			if res.Sum != -0.5 {
				t.Fatalf("Query(%s)(a b).Sum = %v, want -0.5", v, res.Sum)
			}
		})
	}
}

func TestBuildCountingAndOptimizedWordIndexKinds(t *testing.T) {
	path := writeArpa(t, tinyArpa)
	kinds := []config.WordIndexKind{
		config.WordIndexBasic, config.WordIndexCounting,
		config.WordIndexOptimizedBasic, config.WordIndexOptimizedCount,
	}
	for _, k := range kinds {
		k := k
		t.Run(string(k), func(t *testing.T) {
			mcfg := config.ModelConfig{WordIndexKind: k}
			m, err := Build(mcfg, path, nil)
			if err != nil {
				t.Fatalf("Build(%s): %v", k, err)
			}
			res, err := m.Query([]string{"a", "b"}, query.Single)
			if err != nil {
				t.Fatalf("Query(%s): %v", k, err)
			}
			if res.Sum != -0.5 {
				t.Fatalf("Query(%s)(a b).Sum = %v, want -0.5", k, res.Sum)
			}
		})
	}
}

func TestBuildUnknownVariantIsError(t *testing.T) {
	path := writeArpa(t, tinyArpa)
	mcfg := config.ModelConfig{TrieVariant: "bogus"}
	if _, err := Build(mcfg, path, nil); err == nil {
		t.Fatalf("Build with bogus variant succeeded, want error")
	}
}

func TestBuildMissingFileIsError(t *testing.T) {
	mcfg := config.ModelConfig{}
	if _, err := Build(mcfg, "/no/such/file.arpa", nil); err == nil {
		t.Fatalf("Build with missing file succeeded, want error")
	}
}

// richArpa exercises a genuine back-off chain across three levels so the
// six trie variants have more to disagree about than a single bigram.
const richArpa = `
\data\
ngram 1=4
ngram 2=2
ngram 3=1
\1-grams:
-10	<unk>
-3	x
-4	y
-5	z
\2-grams:
-1	x y	-0.2
-1.5	y z	0
\3-grams:
-0.3	x y z
\end\
`

// TestAllVariantsAgree builds every trie variant from the same ARPA input
// and checks they all return identical scores for a shared set of
// queries, per the specification's cross-variant equivalence property.
func TestAllVariantsAgree(t *testing.T) {
	path := writeArpa(t, richArpa)
	variants := []config.TrieVariant{
		config.VariantC2DM, config.VariantC2DH, config.VariantC2WA,
		config.VariantW2CH, config.VariantW2CA, config.VariantG2DM,
	}
	queries := [][]string{
		{"x", "y"},
		{"x", "y", "z"},
		{"y", "z"},
		{"x", "unseen-token"},
	}

	var baseline []query.Result
	for i, v := range variants {
		mcfg := config.ModelConfig{TrieVariant: v}
		m, err := Build(mcfg, path, nil)
		if err != nil {
			t.Fatalf("Build(%s): %v", v, err)
		}
		for qi, tokens := range queries {
			res, err := m.Query(tokens, query.Cumulative)
			if err != nil {
				t.Fatalf("Build(%s).Query(%v): %v", v, tokens, err)
			}
			if i == 0 {
				baseline = append(baseline, res)
				continue
			}
			if res.Sum != baseline[qi].Sum {
				t.Fatalf("variant %s disagrees with %s on %v: got %v, want %v",
					v, variants[0], tokens, res.Sum, baseline[qi].Sum)
			}
		}
	}
}

func TestStatsReflectIngestion(t *testing.T) {
	path := writeArpa(t, tinyArpa)
	m, err := Build(config.ModelConfig{}, path, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	stats := m.Stats()
	if stats.Accepted[1] != 3 {
		t.Fatalf("Stats().Accepted[1] = %d, want 3", stats.Accepted[1])
	}
	if stats.Accepted[2] != 1 {
		t.Fatalf("Stats().Accepted[2] = %d, want 1", stats.Accepted[2])
	}
	if m.VocabularySize() != 2 {
		t.Fatalf("VocabularySize() = %d, want 2 (a, b)", m.VocabularySize())
	}
}
