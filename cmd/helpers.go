package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/config"
	"github.com/ziadkadry99/testkb/internal/db"
	"github.com/ziadkadry99/testkb/internal/embeddings"
	"github.com/ziadkadry99/testkb/internal/journal"
	"github.com/ziadkadry99/testkb/internal/logging"
	"github.com/ziadkadry99/testkb/internal/metrics"
	"github.com/ziadkadry99/testkb/internal/retriever"
	"github.com/ziadkadry99/testkb/internal/vectordb"
)

// app is the set of components every command works with.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     vectordb.Store
	database  *db.DB
	history   *journal.Store
	retriever *retriever.Retriever
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `testkb init` to create a config file", err)
	}
	if ephemeral {
		cfg.Store.Backend = config.BackendMemory
		cfg.Journal.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openApp builds the store, journal and retriever from config. Failures
// here are fatal: a store that cannot be opened is never silently replaced.
func openApp(ctx context.Context, withMetrics bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	embedder, err := embeddings.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := vectordb.Open(cfg.Store, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: store}

	opts := retriever.ConfigOptions(cfg.Retrieval)
	opts = append(opts, retriever.WithLogger(logger))
	if withMetrics {
		opts = append(opts, retriever.WithMetrics(metrics.Prometheus{}))
	}

	if cfg.Journal.Enabled {
		database, err := db.Open(cfg.Journal.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		a.database = database
		a.history = journal.NewStore(database)
		opts = append(opts, retriever.WithJournal(a.history))
	}

	a.retriever, err = retriever.New(ctx, store, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing retriever: %w", err)
	}

	logger.Debug("knowledge store ready",
		zap.String("backend", string(cfg.Store.Backend)),
		zap.String("embedder", embedder.Name()),
		zap.Bool("journal", cfg.Journal.Enabled))
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing vector store", zap.Error(err))
		}
	}
	if a.database != nil {
		a.database.Close()
	}
	_ = logging.Sync(a.logger)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportSearch prints a search result, or the unavailable notice. The
// error is still returned so the exit code reflects the outage.
func reportSearch(res *retriever.Result, err error, asJSON bool) error {
	if err != nil {
		if errors.Is(err, retriever.ErrUnavailable) {
			if asJSON {
				_ = printJSON(map[string]string{"status": string(retriever.StatusUnavailable), "error": err.Error()})
			} else {
				fmt.Fprintln(os.Stderr, retriever.FormatError(err))
			}
		}
		return err
	}
	if asJSON {
		return printJSON(res)
	}
	fmt.Println(retriever.Format(res))
	return nil
}
