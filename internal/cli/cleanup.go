package cli

import (
	"fmt"

	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/maintenance"
	"github.com/lazypower/retention/internal/memory"
	"github.com/spf13/cobra"
)

var cleanupKeep int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [message-log.json]",
	Short: "Strip unusable messages from a message log and prune stored memory",
	Long:  "Removes messages that are not from the user or the ai, or have empty content, from a role/content JSON log. Then trims every stored session to the retention count.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupKeep, "keep", 0, "entries to keep per session (default from config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	path := cfg.Maintenance.MessageLog
	if len(args) == 1 {
		path = args[0]
	}
	if path != "" {
		removed, err := maintenance.CleanFile(path)
		if err != nil {
			return fmt.Errorf("clean %s: %w", path, err)
		}
		fmt.Fprintf(out, "Cleaned %d empty or irrelevant messages from %s\n", removed, path)
	}

	keep := cfg.Memory.Retain
	if cleanupKeep > 0 {
		keep = cleanupKeep
	}
	keep = max(keep, memory.Window)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pruned, err := maintenance.PruneSessions(db, keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Pruned %d stored entries beyond the newest %d per session\n", pruned, keep)
	return nil
}
