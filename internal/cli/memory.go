package cli

import (
	"fmt"
	"time"

	"github.com/lazypower/retention/internal/client"
	"github.com/lazypower/retention/internal/config"
	"github.com/lazypower/retention/internal/memory"
	"github.com/spf13/cobra"
)

var (
	memoryLimit  int
	memoryServer string
)

var memoryCmd = &cobra.Command{
	Use:   "memory [session]",
	Short: "Show a session's recent interactions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMemory,
}

func init() {
	memoryCmd.Flags().IntVarP(&memoryLimit, "limit", "n", memory.Window, "number of entries to show (max 20)")
	memoryCmd.Flags().StringVar(&memoryServer, "server", "", "read from a running server instead of opening the database")
}

func runMemory(cmd *cobra.Command, args []string) error {
	session := "cli"
	if len(args) == 1 {
		session = args[0]
	}

	entries, err := readMemory(session)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "No memory for session %q.\n", session)
		return nil
	}

	for _, e := range entries {
		mood := e.EmotionScores.Dominant()
		if mood == "" {
			mood = "-"
		}
		fmt.Fprintf(out, "[%s] %-8s %s\n", e.Timestamp.Local().Format(time.DateTime), mood, e.UserInput)
		fmt.Fprintf(out, "    → %s\n", e.AIResponse)
	}
	fmt.Fprintf(out, "\n%d entries\n", len(entries))
	return nil
}

func readMemory(session string) ([]memory.Entry, error) {
	if memoryServer != "" {
		return client.NewClient(memoryServer).Memory(session, memoryLimit)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.Memory(session).Entries(memoryLimit)
}
