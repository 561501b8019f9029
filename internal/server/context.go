package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/retention/internal/churn"
	"github.com/lazypower/retention/internal/memory"
)

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	entries, err := s.db.Memory(sessionID).Entries(queryInt(r, "limit", memory.Window))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	messages := memory.Flatten(entries)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
		"context":    buildContext(entries),
	})
}

// buildContext renders a session's recent memory as a markdown block for a
// human agent picking up the conversation.
func buildContext(entries []memory.Entry) string {
	var b strings.Builder

	b.WriteString("<context>\n## Retention: Conversation Memory\n")

	if len(entries) == 0 {
		b.WriteString("\nNo prior interactions recorded.\n</context>")
		return b.String()
	}

	// History pressure is the decayed negative signal the next run will see.
	penalty := churn.HistoryPenalty(memory.ScoresOf(entries))
	b.WriteString(fmt.Sprintf("\n### Emotional Trend\nHistory pressure %.2f over the last %d interactions\n",
		penalty, min(len(entries), churn.HistoryWindow)))

	b.WriteString("\n### Recent Interactions\n")
	for _, e := range entries {
		mood := e.EmotionScores.Dominant()
		if mood == "" {
			mood = "unknown"
		}
		b.WriteString(fmt.Sprintf("- [%s] (%s) user: %s\n  ai: %s\n",
			e.Timestamp.Local().Format(time.DateTime), mood, e.UserInput, e.AIResponse))
	}

	b.WriteString("</context>")
	return b.String()
}
