package cli

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lazypower/retention/internal/classifier"
	"github.com/lazypower/retention/internal/emotion"
	"github.com/lazypower/retention/internal/results"
	"github.com/lazypower/retention/internal/server"
	"github.com/lazypower/retention/internal/store"
)

// testConfig writes a config pointing every file into a temp dir and
// selects it for the next command.
func testConfig(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	cfg := fmt.Sprintf(`database:
  path: %s
classifier:
  provider: lexicon
results:
  path: %s
memory:
  retain: 20
`, filepath.Join(dir, "retention.db"), filepath.Join(dir, "results.json"))

	path := filepath.Join(dir, "retention.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RETENTION_DB", "")
	t.Setenv("RETENTION_CLASSIFIER_URL", "")
	t.Setenv("RETENTION_KAFKA_BROKERS", "")
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(dir, "retention.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	dir := testConfig(t)
	analyzeJSON, analyzeServer = false, ""

	out, err := run(t, dir, "analyze", "--session", "cust-7", "I am furious and angry")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "mostly anger") || !strings.Contains(out, "CHECKIN") {
		t.Errorf("output = %q", out)
	}

	records, err := results.NewFileLog(filepath.Join(dir, "results.json")).Load()
	if err != nil {
		t.Fatalf("load results: %v", err)
	}
	if len(records) != 1 || records[0].SessionID != "cust-7" || records[0].ChurnRisk != 0.5 {
		t.Errorf("records = %+v", records)
	}

	out, err = run(t, dir, "memory", "cust-7")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if !strings.Contains(out, "I am furious and angry") || !strings.Contains(out, "1 entries") {
		t.Errorf("memory output = %q", out)
	}
}

func TestAnalyzeCommandBlank(t *testing.T) {
	dir := testConfig(t)
	analyzeServer = ""
	rootCmd.SetIn(strings.NewReader("   \n"))
	defer rootCmd.SetIn(nil)

	if _, err := run(t, dir, "analyze", "--session", "blank"); err == nil {
		t.Error("expected error for blank input")
	}
}

func TestMemoryCommandEmpty(t *testing.T) {
	dir := testConfig(t)
	memoryServer = ""
	out, err := run(t, dir, "memory", "nobody")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if !strings.Contains(out, `No memory for session "nobody"`) {
		t.Errorf("output = %q", out)
	}
}

func TestCleanupCommand(t *testing.T) {
	dir := testConfig(t)
	log := filepath.Join(dir, "messages.json")
	os.WriteFile(log, []byte(`[{"role":"user","content":"hi"},{"role":"tool","content":"x"}]`), 0644)

	out, err := run(t, dir, "cleanup", log)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !strings.Contains(out, "Cleaned 1 empty or irrelevant messages") {
		t.Errorf("output = %q", out)
	}
}

func TestCleanupCommandMissingFile(t *testing.T) {
	dir := testConfig(t)
	if _, err := run(t, dir, "cleanup", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing message log")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "retention dev") {
		t.Errorf("output = %q", out)
	}
}

func TestAnalyzeCommandRemote(t *testing.T) {
	dir := testConfig(t)
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	mock := &classifier.MockClassifier{Scores: emotion.Scores{emotion.Joy: 0.9}}
	ts := httptest.NewServer(server.New(db, "test", server.Analyzer{Classifier: mock}))
	defer ts.Close()
	defer func() { analyzeServer = "" }()

	out, err := run(t, dir, "analyze", "--server", ts.URL, "--session", "remote-1", "love the new release")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "mostly joy") || !strings.Contains(out, "ENGAGE") {
		t.Errorf("output = %q", out)
	}
	if n, _ := db.Memory("remote-1").Count(); n != 1 {
		t.Errorf("server stored %d entries, want 1", n)
	}
	// the local database is untouched
	if _, err := os.Stat(filepath.Join(dir, "retention.db")); err == nil {
		t.Error("remote analyze opened the local database")
	}
}

func TestReplayCommand(t *testing.T) {
	dir := testConfig(t)
	log := filepath.Join(dir, "conversation.json")
	os.WriteFile(log, []byte(`[
		{"role": "user", "content": "I am so angry, this is useless"},
		{"role": "ai", "content": "Sorry about that"},
		{"role": "user", "content": "still furious"}
	]`), 0644)

	out, err := run(t, dir, "replay", "--session", "rp", log)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.Contains(out, "replayed 2 turns") {
		t.Errorf("output = %q", out)
	}
	// anger alone scores 0.5, then history lifts the second turn to 1.0
	if !strings.Contains(out, "0.5000  CHECKIN") || !strings.Contains(out, "1.0000  ESCALATE") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "logged reply: Sorry about that") {
		t.Errorf("output = %q", out)
	}
}

func TestReplayCommandEmpty(t *testing.T) {
	dir := testConfig(t)
	log := filepath.Join(dir, "empty.json")
	os.WriteFile(log, []byte(`[{"role":"system","content":"x"}]`), 0644)

	if _, err := run(t, dir, "replay", log); err == nil {
		t.Error("expected error for log with no user messages")
	}
}

func TestReplayCommandEphemeral(t *testing.T) {
	dir := testConfig(t)
	defer func() { replayEphemeral = false }()
	log := filepath.Join(dir, "conversation.json")
	os.WriteFile(log, []byte(`[
		{"role": "user", "content": "I am so angry, this is useless"},
		{"role": "user", "content": "still furious"}
	]`), 0644)

	out, err := run(t, dir, "replay", "--ephemeral", "--session", "dry", log)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	// history still builds up within the run
	if !strings.Contains(out, "0.5000  CHECKIN") || !strings.Contains(out, "1.0000  ESCALATE") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "retention.db")); err == nil {
		t.Error("ephemeral replay opened the database")
	}
}

func TestMemoryCommandRemote(t *testing.T) {
	dir := testConfig(t)
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	if err := db.Memory("remote-2").Add("where is my refund", "Monitor sentiment passively", emotion.Scores{emotion.Sadness: 0.8}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ts := httptest.NewServer(server.New(db, "test", server.Analyzer{Classifier: &classifier.MockClassifier{}}))
	defer ts.Close()
	defer func() { memoryServer = "" }()

	out, err := run(t, dir, "memory", "--server", ts.URL, "remote-2")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if !strings.Contains(out, "sadness") || !strings.Contains(out, "where is my refund") || !strings.Contains(out, "1 entries") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "retention.db")); err == nil {
		t.Error("remote memory opened the local database")
	}
}
