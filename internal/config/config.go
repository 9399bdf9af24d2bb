// Package config loads the fixed, construction-time configuration for the
// language model store: trie variant, word index policy, cache sizing,
// growth strategy and query mode (§6). Nothing here is mutated once the
// store is built.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v2"
)

// TrieVariant names one of the six interchangeable trie back-ends, as read
// from YAML. Kept as a string in config so unknown values produce a clean
// parse error rather than defaulting silently.
type TrieVariant string

const (
	VariantC2DM TrieVariant = "c2dm"
	VariantC2DH TrieVariant = "c2dh"
	VariantC2WA TrieVariant = "c2wa"
	VariantW2CH TrieVariant = "w2ch"
	VariantW2CA TrieVariant = "w2ca"
	VariantG2DM TrieVariant = "g2dm"
)

// WordIndexKind names a Word Index policy (§4.1).
type WordIndexKind string

const (
	WordIndexBasic          WordIndexKind = "basic"
	WordIndexCounting       WordIndexKind = "counting"
	WordIndexOptimizedBasic WordIndexKind = "optimizing_basic"
	WordIndexOptimizedCount WordIndexKind = "optimizing_counting"
)

// QueryMode selects the query engine's operating mode (§4.7).
type QueryMode string

const (
	QuerySingle     QueryMode = "single"
	QueryCumulative QueryMode = "cumulative"
)

// GrowthConfig is the (kind, min_inc, factor) tuple the Memory Growth
// Strategy is configured with for dynamic trie variants.
type GrowthConfig struct {
	Kind   string  `yaml:"kind"`
	MinInc int     `yaml:"min_inc"`
	Factor float64 `yaml:"factor"`
}

// AppConfig holds the process-level knobs that are not themselves part of
// the model's build parameters: where to read the ARPA file from, where to
// read queries from, and whether to serve an HTTP query API.
type AppConfig struct {
	ArpaPath     string `yaml:"arpa_path"`
	QueryPath    string `yaml:"query_path"`
	Serve        bool   `yaml:"serve"`
	Port         int    `yaml:"port"`
	LogLevel     string `yaml:"log_level"`
}

// ModelConfig mirrors the "Configuration options" table in §6.
type ModelConfig struct {
	MaxLevel               int           `yaml:"max_level"`
	TrieVariant             TrieVariant   `yaml:"trie_variant"`
	WordIndexKind           WordIndexKind `yaml:"word_index_kind"`
	HashCacheBucketsFactor  uint          `yaml:"hash_cache_buckets_factor"`
	Growth                  GrowthConfig  `yaml:"mem_growth"`
	QueryMode               QueryMode     `yaml:"query_mode"`
	BucketsPerGDM           float64       `yaml:"buckets_per_gdm"`
}

// Config is the top-level, fully-resolved configuration loaded from YAML.
type Config struct {
	App   AppConfig   `yaml:"app"`
	Model ModelConfig `yaml:"model"`
}

// applyDefaults fills in the reference configuration (§6: max_level=5) for any
// field the YAML document left zero-valued.
func (c *Config) applyDefaults() {
	if c.Model.MaxLevel == 0 {
		c.Model.MaxLevel = 5
	}
	if c.Model.TrieVariant == "" {
		c.Model.TrieVariant = VariantC2DM
	}
	if c.Model.WordIndexKind == "" {
		c.Model.WordIndexKind = WordIndexBasic
	}
	if c.Model.HashCacheBucketsFactor == 0 {
		c.Model.HashCacheBucketsFactor = 20
	}
	if c.Model.Growth.Kind == "" {
		c.Model.Growth.Kind = "linear"
	}
	if c.Model.Growth.MinInc == 0 {
		c.Model.Growth.MinInc = 4
	}
	if c.Model.Growth.Factor == 0 {
		c.Model.Growth.Factor = 1.0
	}
	if c.Model.BucketsPerGDM == 0 {
		c.Model.BucketsPerGDM = 0.1
	}
	if c.Model.QueryMode == "" {
		c.Model.QueryMode = QueryCumulative
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
}

// LoadConfig reads and parses a YAML configuration file at path, expanding
// shell-style environment variable references before parsing so deployment
// secrets and paths never need to be hard-coded.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(raw))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

var (
	bracedVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)
	bareVarPattern   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars resolves ${VAR}, ${VAR:-default} and bare $VAR references.
// Braced references always resolve to something (the value, the default, or
// an empty string); a bare $VAR with no matching environment variable is
// left untouched, since it is ambiguous with a literal dollar sign in
// unquoted YAML scalars.
func expandEnvVars(input string) string {
	out := bracedVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := bracedVarPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
	out = bareVarPattern.ReplaceAllStringFunc(out, func(match string) string {
		name := match[1:]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
	return out
}
