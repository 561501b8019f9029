package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/kafka"
	"github.com/lazypower/retention/internal/results"
	"github.com/lazypower/retention/internal/store"
)

// openDB resolves the configured database path and opens it.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// resultSinks builds the configured result destinations. The returned closer
// releases broker connections; it is never nil.
func resultSinks(cfg config.Config) (results.Sink, io.Closer) {
	var sinks results.Multi
	var closer closerFunc = func() error { return nil }

	if cfg.Results.Path != "" {
		sinks = append(sinks, results.NewFileLog(cfg.Results.Path))
		fmt.Fprintf(os.Stderr, "  results: %s\n", cfg.Results.Path)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sinks = append(sinks, p)
		closer = p.Close
		fmt.Fprintf(os.Stderr, "  kafka: %v topic %s\n", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	if len(sinks) == 0 {
		return nil, closer
	}
	return sinks, closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// runContext bounds one pipeline run by the classifier timeout, if any.
func runContext(cfg config.Config) (context.Context, context.CancelFunc) {
	if cfg.Classifier.Timeout > 0 {
		return context.WithTimeout(context.Background(), cfg.Classifier.Timeout)
	}
	return context.WithCancel(context.Background())
}
