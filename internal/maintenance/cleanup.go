// Package maintenance keeps on-disk conversation data tidy: it strips
// unusable messages from role/content JSON logs and trims stored sessions
// to a retention count.
package maintenance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lazypower/retention/internal/memory"
)

var (
	ErrNotFound    = errors.New("message log not found")
	ErrInvalidJSON = errors.New("message log is not valid JSON")
)

// CleanFile rewrites a JSON array of {"role", "content"} messages, keeping
// only user and ai messages with non-blank content. Other fields on kept
// messages are preserved. It returns the number of messages removed.
func CleanFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return 0, fmt.Errorf("read message log: %w", err)
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidJSON, path, err)
	}

	kept := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if keepMessage(item) {
			kept = append(kept, item)
		}
	}

	out, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal message log: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return 0, fmt.Errorf("write message log: %w", err)
	}
	return len(items) - len(kept), nil
}

func keepMessage(item map[string]any) bool {
	role, _ := item["role"].(string)
	if role != memory.RoleUser && role != memory.RoleAI {
		return false
	}
	content, _ := item["content"].(string)
	return strings.TrimSpace(content) != ""
}
