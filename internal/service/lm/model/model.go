// Package model wires the Word Index, a chosen trie variant, the Bitmap
// Hash Cache, the ARPA ingester and the Query Engine into the single
// buildable, queryable language model the rest of the application talks
// to, parameterised by internal/config.
package model

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/arpalm/golm/internal/config"
	"github.com/arpalm/golm/internal/service/lm/arpa"
	"github.com/arpalm/golm/internal/service/lm/cache"
	"github.com/arpalm/golm/internal/service/lm/query"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/trie/c2dh"
	"github.com/arpalm/golm/internal/service/lm/trie/c2dm"
	"github.com/arpalm/golm/internal/service/lm/trie/c2wa"
	"github.com/arpalm/golm/internal/service/lm/trie/g2dm"
	"github.com/arpalm/golm/internal/service/lm/trie/w2ca"
	"github.com/arpalm/golm/internal/service/lm/trie/w2ch"
	"github.com/arpalm/golm/internal/service/lm/word"
)

// Model is a fully built, read-only language model: a Word Index, one
// trie variant and a Bitmap Hash Cache behind a Query Engine. Once Build
// returns, nothing in this package mutates state, so a *Model may be
// shared across goroutines for concurrent querying (per the query
// engine's own concurrency note).
type Model struct {
	index  *word.Index
	trie   trie.Trie
	bitmap *cache.Cache
	engine *query.Engine

	variant trie.Variant
	stats   arpa.Stats
}

// newTrie constructs the trie variant named by cfg, per the variant
// selector table in the external interfaces section.
func newTrie(variant config.TrieVariant, tcfg trie.Config) (trie.Trie, error) {
	switch variant {
	case config.VariantC2DM, "":
		return c2dm.New(tcfg), nil
	case config.VariantC2DH:
		return c2dh.New(tcfg), nil
	case config.VariantC2WA:
		return c2wa.New(tcfg), nil
	case config.VariantW2CH:
		return w2ch.New(tcfg), nil
	case config.VariantW2CA:
		return w2ca.New(tcfg), nil
	case config.VariantG2DM:
		return g2dm.New(tcfg), nil
	default:
		return nil, fmt.Errorf("model: unknown trie variant %q", variant)
	}
}

// newWordIndex constructs the Word Index policy named by cfg. optimized
// reports whether the kind asked for the hash-bucketed lookup wrapper
// (built separately, once ingestion has finished and Finalize has run).
func newWordIndex(kind config.WordIndexKind) (idx *word.Index, optimized bool, err error) {
	switch kind {
	case config.WordIndexBasic, "":
		return word.New(word.Basic), false, nil
	case config.WordIndexCounting:
		return word.New(word.Counting), false, nil
	case config.WordIndexOptimizedBasic:
		return word.New(word.Basic), true, nil
	case config.WordIndexOptimizedCount:
		return word.New(word.Counting), true, nil
	default:
		return nil, false, fmt.Errorf("model: unknown word index kind %q", kind)
	}
}

// growthKindToFn maps the configured growth kind name to growth.New's selector.
// The growth package's own enum is intentionally not imported by config,
// so model.Build is the seam that translates the string form into it.
func growthKindToFn(kind string) int {
	switch kind {
	case "constant":
		return 0
	case "log2":
		return 2
	case "log10":
		return 3
	default:
		return 1 // linear
	}
}

// Build opens arpaPath, ingests it according to mcfg and returns a query-
// ready Model. logger may be nil, in which case ingestion is silent.
func Build(mcfg config.ModelConfig, arpaPath string, logger *zap.Logger) (*Model, error) {
	idx, optimized, err := newWordIndex(mcfg.WordIndexKind)
	if err != nil {
		return nil, err
	}

	tcfg := trie.Config{
		GrowthFn:      growthKindToFn(mcfg.Growth.Kind),
		GrowthMinInc:  mcfg.Growth.MinInc,
		GrowthFactor:  mcfg.Growth.Factor,
		BucketsPerGDM: mcfg.BucketsPerGDM,
	}
	tr, err := newTrie(mcfg.TrieVariant, tcfg)
	if err != nil {
		return nil, err
	}

	bitmap := cache.New(true, mcfg.HashCacheBucketsFactor)

	f, err := os.Open(arpaPath)
	if err != nil {
		return nil, fmt.Errorf("model: opening %s: %w", arpaPath, err)
	}
	defer f.Close()

	ing := arpa.New(idx, tr, bitmap, logger)
	if err := ing.Run(arpa.NewFileLineReader(f)); err != nil {
		return nil, fmt.Errorf("model: ingesting %s: %w", arpaPath, err)
	}

	if logger != nil {
		if mismatched := ing.Stats.MismatchedLevels(); len(mismatched) > 0 {
			logger.Warn("model: some levels' declared counts did not match what was ingested",
				zap.Ints("levels", mismatched))
		}
		logger.Info("model: built language model",
			zap.String("variant", tr.Variant().String()),
			zap.Int("vocabulary_size", idx.VocabularySize()))
	}

	var resolver query.Resolver = idx
	if optimized {
		// Built once, after Finalize has settled on permanent ids; the
		// fixed-capacity hash table it wraps would otherwise need to be
		// rebuilt every time the counting policy's permutation changes.
		resolver = word.NewOptimized(idx)
	}

	return &Model{
		index:   idx,
		trie:    tr,
		bitmap:  bitmap,
		engine:  query.New(resolver, tr, bitmap),
		variant: tr.Variant(),
		stats:   ing.Stats,
	}, nil
}

// Query answers one sequence query against the built model.
func (m *Model) Query(tokens []string, mode query.Mode) (query.Result, error) {
	return m.engine.Query(tokens, mode)
}

// Variant reports which trie back-end this model was built with.
func (m *Model) Variant() trie.Variant {
	return m.variant
}

// Stats reports the ingestion statistics recorded while this model was
// built, useful for diagnostics and the HTTP stats endpoint.
func (m *Model) Stats() arpa.Stats {
	return m.stats
}

// VocabularySize returns the number of distinct tokens in the model.
func (m *Model) VocabularySize() int {
	return m.index.VocabularySize()
}
