package cli

import (
	"context"
	"fmt"

	"github.com/lazypower/retention/internal/classifier"
	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/memory"
	"github.com/lazypower/retention/internal/pipeline"
	"github.com/lazypower/retention/internal/recommend"
	"github.com/lazypower/retention/internal/transcript"
	"github.com/spf13/cobra"
)

var (
	replaySession   string
	replayEphemeral bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <conversation.json>",
	Short: "Run every user message of a logged conversation through the pipeline",
	Long:  "Reads a conversation log (JSON array or JSON lines of role/content messages) and runs each user message, in order, against one session's memory. Churn risk builds up across the conversation as it would have live.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replaySession, "session", "s", "", "session to replay into (default: the file name)")
	replayCmd.Flags().BoolVar(&replayEphemeral, "ephemeral", false, "replay into in-process memory and leave the database untouched")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	msgs, err := transcript.ParseFile(args[0])
	if err != nil {
		return err
	}
	turns := transcript.Turns(msgs)
	if len(turns) == 0 {
		return fmt.Errorf("no user messages in %s", args[0])
	}

	session := replaySession
	if session == "" {
		session = args[0]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	var mem memory.Store
	if replayEphemeral {
		mem = memory.NewBuffer(cfg.Memory.Retain)
	} else {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		mem = db.Memory(session)
	}

	clf, err := classifier.NewClassifier(cfg.Classifier)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	rec, err := recommend.New(cfg.Thresholds)
	if err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	sink, closer := resultSinks(cfg)
	defer closer.Close()

	p := pipeline.New(clf, mem, rec)
	out := cmd.OutOrStdout()
	for i, turn := range turns {
		ctx, cancel := runContext(cfg)
		state, err := p.Run(ctx, turn.User)
		cancel()
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}

		if sink != nil {
			r := state.Record()
			r.SessionID = session
			if err := sink.Save(context.Background(), r); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: save result: %v\n", err)
			}
		}

		fmt.Fprintf(out, "%3d  %.4f  %-8s %s\n", i+1, *state.ChurnRisk, state.Recommendation.Code, turn.User)
		if turn.AI != "" {
			fmt.Fprintf(out, "     logged reply: %s\n", turn.AI)
		}
	}
	fmt.Fprintf(out, "\nreplayed %d turns into session %q\n", len(turns), session)
	return nil
}
