// Package arpa implements the ARPA ingester (§4.6): a header/section/line
// state machine that reads an ARPA-format N-gram file and feeds every
// parsed m-gram to the Word Index, a trie.Trie and a cache.Cache.
package arpa

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	lm "github.com/arpalm/golm/internal/model/lm"
	"github.com/arpalm/golm/internal/service/lm/cache"
	"github.com/arpalm/golm/internal/service/lm/trie"
	"github.com/arpalm/golm/internal/service/lm/word"
)

// LineReader is the ingester's sole external collaborator: a lazy sequence
// of lines, decoupled from any particular I/O source so tests can feed it
// canned input without touching a filesystem.
type LineReader interface {
	// NextLine returns the next line and true, or ("", false) at EOF.
	NextLine() (string, bool)
}

// FileLineReader is a LineReader over a bufio.Scanner, the ingester's
// production collaborator.
type FileLineReader struct {
	scanner *bufio.Scanner
}

// NewFileLineReader wraps r for line-at-a-time ARPA ingestion.
func NewFileLineReader(r io.Reader) *FileLineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &FileLineReader{scanner: s}
}

func (f *FileLineReader) NextLine() (string, bool) {
	if f.scanner.Scan() {
		return f.scanner.Text(), true
	}
	return "", false
}

var (
	headerCountPattern = regexp.MustCompile(`^ngram\s+(\d+)\s*=\s*(\d+)$`)
	sectionPattern     = regexp.MustCompile(`^\\(\d+)-grams:$`)
)

// Stats reports per-level ingestion counts, used to surface the
// non-fatal tolerances §4.6 and §7 require: skipped lines and count
// mismatches are logged, never fatal.
type Stats struct {
	Accepted [lm.MaxOrder + 1]int
	Skipped  [lm.MaxOrder + 1]int
	Declared [lm.MaxOrder + 1]int
}

// MismatchedLevels returns the levels whose accepted line count differs
// from what the header declared.
func (s *Stats) MismatchedLevels() []int {
	var levels []int
	for m := 1; m <= lm.MaxOrder; m++ {
		if s.Declared[m] != 0 && s.Accepted[m] != s.Declared[m] {
			levels = append(levels, m)
		}
	}
	return levels
}

// Ingester drives the header/section/line state machine described in
// §4.6, feeding the Word Index, a trie.Trie and a Bitmap Hash Cache.
//
// Assumption (undocumented by the ARPA format itself): the header's
// highest declared level M is treated as equal to the compile-time
// constant lm.MaxOrder. If an input file declares M < MaxOrder, its last
// section is still ingested through AddNGram rather than AddTopNGram,
// since every trie variant's "top" lookup path is hard-wired to exactly
// lm.MaxOrder word-ids; GetNGramProb then simply never finds anything for
// such a build, which is a degenerate but well-defined case.
type Ingester struct {
	Index  *word.Index
	Trie   trie.Trie
	Bitmap *cache.Cache
	Logger *zap.Logger

	Stats Stats

	pendingUnigrams []unigramEntry
}

type unigramEntry struct {
	token   string
	payload lm.Payload
}

// New constructs an Ingester wired to the given Word Index, trie and
// Bitmap Hash Cache.
func New(index *word.Index, tr trie.Trie, bitmap *cache.Cache, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{Index: index, Trie: tr, Bitmap: bitmap, Logger: logger}
}

type ingestState int

const (
	stateSeekData ingestState = iota
	stateHeader
	stateSection
	stateDone
)

// Run consumes r to completion, applying every tolerance in §4.6 and §7:
// blank lines and unrecognised top-level markers are logged and skipped,
// per-line parse errors are counted, and a missing back-off field for
// m < MaxOrder defaults to lm.ZeroBackOff.
func (in *Ingester) Run(r LineReader) error {
	state := stateSeekData
	var counts trie.Counts
	currentLevel := 0

	finishSection := func() error {
		if currentLevel == 0 {
			return nil
		}
		if currentLevel == 1 {
			// The counting policy's permutation must be fixed before any
			// 1-gram payload is committed to the trie, since the trie
			// indexes level 1 by word-id: inserting during the section
			// with pre-permutation ids would silently scramble the array
			// once Finalize renumbers tokens underneath it.
			in.Index.Finalize()
			for _, e := range in.pendingUnigrams {
				id := in.Index.Get(e.token)
				if err := in.Trie.AddNGram(1, lm.NGram{id}, e.payload); err != nil {
					return fmt.Errorf("arpa: add_m_gram<1>(%q): %w", e.token, err)
				}
			}
			in.pendingUnigrams = nil
		}
		if err := in.Trie.PostLevel(currentLevel); err != nil {
			return fmt.Errorf("arpa: post_level<%d>: %w", currentLevel, err)
		}
		if in.Stats.Declared[currentLevel] != 0 && in.Stats.Accepted[currentLevel] != in.Stats.Declared[currentLevel] {
			in.Logger.Warn("arpa: m-gram count mismatch",
				zap.Int("level", currentLevel),
				zap.Int("declared", in.Stats.Declared[currentLevel]),
				zap.Int("accepted", in.Stats.Accepted[currentLevel]))
		}
		return nil
	}

	for {
		line, ok := r.NextLine()
		if !ok {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			in.Logger.Warn("arpa: ignoring blank line")
			continue
		}

		switch state {
		case stateSeekData:
			if line == `\data\` {
				state = stateHeader
				continue
			}
			in.Logger.Warn("arpa: ignoring unrecognised line before \\data\\", zap.String("line", line))
			continue

		case stateHeader:
			if m := headerCountPattern.FindStringSubmatch(line); m != nil {
				level, _ := strconv.Atoi(m[1])
				count, _ := strconv.Atoi(m[2])
				if level >= 1 && level <= lm.MaxOrder {
					counts[level] = count
					in.Stats.Declared[level] = count
				}
				continue
			}
			if m := sectionPattern.FindStringSubmatch(line); m != nil {
				if err := in.Trie.Preallocate(counts); err != nil {
					return fmt.Errorf("arpa: preallocate: %w", err)
				}
				for level := 1; level <= lm.MaxOrder; level++ {
					in.Bitmap.SizeLevel(level, counts[level])
				}
				state = stateSection
				level, _ := strconv.Atoi(m[1])
				currentLevel = level
				continue
			}
			return fmt.Errorf("arpa: malformed header line %q", line)

		case stateSection:
			if line == `\end\` {
				if err := finishSection(); err != nil {
					return err
				}
				state = stateDone
				continue
			}
			if m := sectionPattern.FindStringSubmatch(line); m != nil {
				if err := finishSection(); err != nil {
					return err
				}
				level, _ := strconv.Atoi(m[1])
				currentLevel = level
				continue
			}
			in.ingestLine(currentLevel, line)

		case stateDone:
			// Tolerate trailing blank/garbage lines after \end\.
			continue
		}
	}

	if state == stateSection {
		// EOF without a closing \end\: still finish the open section
		// cleanly, per "stop cleanly on \end\ or EOF".
		return finishSection()
	}
	return nil
}

// ingestLine parses one m-gram line of the given level and feeds it to
// the Word Index and trie. Parse errors are logged and counted, never
// fatal, per §7.
func (in *Ingester) ingestLine(level int, line string) {
	fields := strings.Fields(line)
	if len(fields) < 1+level {
		in.Logger.Warn("arpa: skipping malformed m-gram line", zap.Int("level", level), zap.String("line", line))
		in.Stats.Skipped[level]++
		return
	}

	logProb, err := strconv.ParseFloat(fields[0], 32)
	if err != nil {
		in.Logger.Warn("arpa: unparsable log-probability", zap.String("line", line), zap.Error(err))
		in.Stats.Skipped[level]++
		return
	}

	tokens := fields[1 : 1+level]
	hasBack := len(fields) >= 2+level
	var backOff float64
	if hasBack {
		backOff, err = strconv.ParseFloat(fields[1+level], 32)
		if err != nil {
			in.Logger.Warn("arpa: unparsable back-off weight, defaulting to zero",
				zap.String("line", line), zap.Error(err))
			backOff = float64(lm.ZeroBackOff)
		}
	} else if level < lm.MaxOrder {
		backOff = float64(lm.ZeroBackOff)
	}

	if level == 1 {
		// Registration (and the counting policy's frequency tally) happens
		// now, but the trie insert is deferred to finishSection, after
		// Finalize has settled on permanent ids. Every vocabulary word
		// appears exactly once in \1-grams:, so the occurrence tally alone
		// never discriminates between tokens; RecordProbability gives
		// Finalize ARPA's own frequency proxy to fall back on.
		in.Index.Register(tokens[0])
		in.Index.RecordProbability(tokens[0], float32(logProb))
		in.pendingUnigrams = append(in.pendingUnigrams, unigramEntry{
			token:   tokens[0],
			payload: lm.Payload{Prob: float32(logProb), Back: float32(backOff)},
		})
		in.Stats.Accepted[level]++
		return
	}

	ids := make(lm.NGram, level)
	raw := make([]uint32, level)
	for i, tok := range tokens {
		id := in.Index.Get(tok)
		ids[i] = id
		raw[i] = uint32(id)
	}

	var addErr error
	switch {
	case level == lm.MaxOrder:
		addErr = in.Trie.AddTopNGram(ids, lm.TopPayload{Prob: float32(logProb)})
	default:
		addErr = in.Trie.AddNGram(level, ids, lm.Payload{Prob: float32(logProb), Back: float32(backOff)})
	}
	if addErr != nil {
		in.Logger.Warn("arpa: trie rejected m-gram, skipping", zap.Int("level", level), zap.Error(addErr))
		in.Stats.Skipped[level]++
		return
	}

	in.Bitmap.Record(level, cache.Fingerprint(raw))
	in.Stats.Accepted[level]++
}
