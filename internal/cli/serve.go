package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/retention/internal/classifier"
	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/maintenance"
	"github.com/lazypower/retention/internal/recommend"
	"github.com/lazypower/retention/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	clf, err := classifier.NewClassifier(cfg.Classifier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: classifier not configured (%v), using lexicon\n", err)
		clf = classifier.NewLexicon()
	} else {
		fmt.Fprintf(os.Stderr, "  classifier: %s\n", cfg.Classifier.Provider)
	}

	rec, err := recommend.New(cfg.Thresholds)
	if err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	sink, closer := resultSinks(cfg)
	defer closer.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Maintenance.Schedule != "" {
		job := maintenance.Job{DB: db, Retain: cfg.Memory.Retain, MessageLog: cfg.Maintenance.MessageLog}
		sched, err := maintenance.NewScheduler(cfg.Maintenance.Schedule, job)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
		fmt.Fprintf(os.Stderr, "  maintenance: %q (next %s)\n", cfg.Maintenance.Schedule, sched.Next().Format(time.DateTime))
	}

	srv := server.New(db, VersionString(), server.Analyzer{
		Classifier:  clf,
		Recommender: rec,
		Results:     sink,
		Timeout:     cfg.Classifier.Timeout,
	})
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "retention serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}
