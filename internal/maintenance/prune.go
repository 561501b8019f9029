package maintenance

import (
	"fmt"
	"log"

	"github.com/lazypower/retention/internal/memory"
	"github.com/lazypower/retention/internal/store"
)

// PruneSessions trims every stored session to its keep most recent entries
// and returns the total removed. keep is raised to memory.Window so a prune
// never shrinks the window a run reads. A failure on one session is logged,
// the rest are still pruned, and the last error is returned.
func PruneSessions(db *store.DB, keep int) (int, error) {
	if keep < memory.Window {
		keep = memory.Window
	}

	ids, err := db.ListSessionIDs()
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	var total int
	var lastErr error
	for _, id := range ids {
		n, err := db.Memory(id).Prune(keep)
		if err != nil {
			log.Printf("maintenance: prune %s: %v", id, err)
			lastErr = err
			continue
		}
		total += n
	}
	return total, lastErr
}
