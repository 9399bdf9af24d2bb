package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arpalm/golm/internal/config"
	"github.com/arpalm/golm/internal/httpapi"
	"github.com/arpalm/golm/internal/service/lm/model"
	"github.com/arpalm/golm/internal/service/lm/query"
)

func main() {
	var configPath = flag.String("config", "config.yaml", "Path to the app/model configuration file")
	var arpaPath = flag.String("arpa", "", "Path to the ARPA model file (overrides the config file's app.arpa_path)")
	var queryPath = flag.String("query", "", "Path to a file of whitespace-separated token lines to score (overrides app.query_path)")
	var serve = flag.Bool("serve", false, "Serve the query API over HTTP instead of reading a query file")
	flag.Parse()

	cfgZap := zap.NewProductionConfig()
	cfgZap.Level.SetLevel(zapcore.InfoLevel)
	cfgZap.OutputPaths = []string{"stdout"}
	logger, err := cfgZap.Build()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *arpaPath != "" {
		cfg.App.ArpaPath = *arpaPath
	}
	if *queryPath != "" {
		cfg.App.QueryPath = *queryPath
	}
	if *serve {
		cfg.App.Serve = true
	}

	logger.Info("Building language model",
		zap.String("arpa_path", cfg.App.ArpaPath),
		zap.String("trie_variant", string(cfg.Model.TrieVariant)),
		zap.String("word_index_kind", string(cfg.Model.WordIndexKind)))

	m, err := model.Build(cfg.Model, cfg.App.ArpaPath, logger)
	if err != nil {
		logger.Fatal("Failed to build language model", zap.Error(err))
	}
	logger.Info("Language model ready",
		zap.String("variant", m.Variant().String()),
		zap.Int("vocabulary_size", m.VocabularySize()))

	if cfg.App.Serve {
		serveHTTP(cfg, m, logger)
		return
	}

	mode := query.Cumulative
	if cfg.Model.QueryMode == config.QuerySingle {
		mode = query.Single
	}

	if cfg.App.QueryPath != "" {
		if err := runQueryFile(m, cfg.App.QueryPath, mode, logger); err != nil {
			logger.Fatal("Failed to run query file", zap.Error(err))
		}
		return
	}

	if err := runStdin(m, mode); err != nil {
		logger.Fatal("Failed to read queries from stdin", zap.Error(err))
	}
}

func serveHTTP(cfg *config.Config, m *model.Model, logger *zap.Logger) {
	controller := httpapi.NewModelController(m, logger)
	router := httpapi.SetupRouter(controller, logger)

	logger.Info("Starting server", zap.Int("port", cfg.App.Port))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), router); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// runQueryFile scores every line of path, one whitespace-separated token
// sequence per line, printing "tokens\tlogprob" to stdout.
func runQueryFile(m *model.Model, path string, mode query.Mode, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return scoreLines(m, f, mode, logger)
}

func runStdin(m *model.Model, mode query.Mode) error {
	return scoreLines(m, os.Stdin, mode, nil)
}

func scoreLines(m *model.Model, r *os.File, mode query.Mode, logger *zap.Logger) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens := strings.Fields(line)
		res, err := m.Query(tokens, mode)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping unscorable line", zap.String("line", line), zap.Error(err))
			}
			continue
		}
		fmt.Printf("%s\t%g\n", line, res.Sum)
	}
	return scanner.Err()
}
