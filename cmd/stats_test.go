package cmd

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testMbox = "../mailbox/testdata/chats.mbox"

func TestBuildReport(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	report, err := BuildReport(testMbox, true, "Alice Example", logger)
	if err != nil {
		t.Fatalf("BuildReport() error = %v", err)
	}

	if report.Messages != 3 || report.Duplicates != 1 || report.Malformed != 1 {
		t.Errorf("unexpected totals: %+v", report)
	}

	wantConversations := map[string]int{"Carol": 1, "Bob Example": 1, "Dave": 1}
	for name, want := range wantConversations {
		if got := report.Conversations[name]; got != want {
			t.Errorf("Conversations[%q] = %d, want %d", name, got, want)
		}
	}
	if report.Kinds["hybrid"] != 2 || report.Kinds["session"] != 1 {
		t.Errorf("Kinds = %v", report.Kinds)
	}
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	cmd := NewStatsCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-p", testMbox, "-m", "-n", "Alice Example", "-o", dir, "--top", "2"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{"Mailbox summary", "Top 2 conversations", "Bob_Example.txt"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	file, err := os.Open(filepath.Join(dir, "report_conversations.csv"))
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4 (header + 3 conversations)", len(rows))
	}
	if rows[0][0] != "Conversation" || rows[1][0] != "Bob Example" || rows[1][1] != "Bob_Example.txt" {
		t.Errorf("unexpected rows: %v", rows)
	}

	if _, err := os.Stat(filepath.Join(dir, "report_kinds.csv")); err != nil {
		t.Errorf("expected kinds report: %v", err)
	}
}

func TestStatsCommand_RequiresPath(t *testing.T) {
	cmd := NewStatsCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"-m"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --mailbox-path")
	}
}
