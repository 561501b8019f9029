package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lazypower/retention/internal/classifier"
	"github.com/lazypower/retention/internal/client"
	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/pipeline"
	"github.com/lazypower/retention/internal/recommend"
	"github.com/spf13/cobra"
)

var (
	analyzeSession string
	analyzeJSON    bool
	analyzeServer  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Run one message through the decision pipeline",
	Long:  "Classifies the message, scores churn risk against the session's memory, prints the recommendation, and records the interaction. With no arguments the message is read from stdin.",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeSession, "session", "s", "cli", "session whose memory to use")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
	analyzeCmd.Flags().StringVar(&analyzeServer, "server", "", "send the message to a running server instead of opening the database")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	if analyzeServer != "" {
		return analyzeRemote(cmd, text)
	}

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
		return fmt.Errorf("classifier: %w", err)
	}
	rec, err := recommend.New(cfg.Thresholds)
	if err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	ctx, cancel := runContext(cfg)
	defer cancel()

	p := pipeline.New(clf, db.Memory(analyzeSession), rec)
	state, err := p.Run(ctx, text)
	if err != nil {
		return err
	}

	sink, closer := resultSinks(cfg)
	defer closer.Close()
	if sink != nil {
		r := state.Record()
		r.SessionID = analyzeSession
		if err := sink.Save(context.Background(), r); err != nil {
			fmt.Fprintf(os.Stderr, "warning: save result: %v\n", err)
		}
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	fmt.Fprintln(out, state.Summary())
	fmt.Fprintf(out, "  code: %s  churn risk: %.4f\n", state.Recommendation.Code, *state.ChurnRisk)
	return nil
}

// analyzeRemote lets a running server own the database and result sinks.
func analyzeRemote(cmd *cobra.Command, text string) error {
	res, err := client.NewClient(analyzeServer).Analyze(analyzeSession, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintln(out, res.Summary)
	fmt.Fprintf(out, "  code: %s  churn risk: %.4f\n", res.Recommendation.Code, res.ChurnRisk)
	return nil
}
