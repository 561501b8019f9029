// Package transcript reads conversation logs from disk so past
// conversations can be replayed through the decision pipeline.
//
// Two layouts are accepted: a JSON array of {"role", "content"} messages,
// and JSON lines where each line is either such a message or a
// {"type", "message": {...}} envelope.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/lazypower/retention/internal/memory"
)

// Entry is one line of an enveloped JSONL log.
type Entry struct {
	Type    string          `json:"type"` // "user", "assistant", "system"
	Message json.RawMessage `json:"message"`
}

// Message is a single logged message before normalization.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"` // string or []ContentItem
}

// ContentItem represents a single content block (text, tool_use, tool_result).
type ContentItem struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result"
	Text string `json:"text,omitempty"`
}

// Turn is one user message and the reply that followed it, if any.
type Turn struct {
	User string
	AI   string
}

var systemReminderRe = regexp.MustCompile(`<system-reminder>[\s\S]*?</system-reminder>`)

// ParseFile reads a conversation log and returns its user and ai messages
// in order.
func ParseFile(path string) ([]memory.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	return Parse(data)
}

// Parse decodes log content in either layout.
func Parse(data []byte) ([]memory.Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		var msgs []memory.Message
		for _, r := range raw {
			if m, ok := parseLine(r); ok {
				msgs = append(msgs, m)
			}
		}
		return msgs, nil
	}

	var msgs []memory.Message
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if m, ok := parseLine(line); ok {
			msgs = append(msgs, m)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return msgs, nil
}

// parseLine decodes one message or envelope. Malformed lines, roles other
// than user and ai, and messages with no text are skipped.
func parseLine(line []byte) (memory.Message, bool) {
	var entry Entry
	if err := json.Unmarshal(line, &entry); err != nil {
		return memory.Message{}, false
	}

	raw := json.RawMessage(line)
	if entry.Message != nil {
		raw = entry.Message
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return memory.Message{}, false
	}
	if msg.Role == "" {
		msg.Role = entry.Type
	}

	role := normalizeRole(msg.Role)
	if role == "" {
		return memory.Message{}, false
	}

	text := extractText(msg.Content)
	text = systemReminderRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return memory.Message{}, false
	}

	return memory.Message{Role: role, Content: text}, true
}

func normalizeRole(role string) string {
	switch strings.ToLower(role) {
	case "user", "human", "customer":
		return memory.RoleUser
	case "ai", "assistant", "agent", "bot":
		return memory.RoleAI
	}
	return ""
}

// extractText handles the polymorphic content field.
// It may be a plain string or an array of ContentItem.
func extractText(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}

	// Try as string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	// Try as array of content items
	var items []ContentItem
	if err := json.Unmarshal(raw, &items); err == nil {
		var texts []string
		for _, item := range items {
			if item.Type == "text" && item.Text != "" {
				texts = append(texts, item.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	return ""
}

// Turns pairs each user message with the first ai reply after it.
// Consecutive user messages each get their own turn; an ai message with no
// preceding user message is dropped.
func Turns(msgs []memory.Message) []Turn {
	var turns []Turn
	for _, m := range msgs {
		switch m.Role {
		case memory.RoleUser:
			turns = append(turns, Turn{User: m.Content})
		case memory.RoleAI:
			if n := len(turns); n > 0 && turns[n-1].AI == "" {
				turns[n-1].AI = m.Content
			}
		}
	}
	return turns
}
