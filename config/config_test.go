package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func newCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	if err := RegisterFlags(cmd); err != nil {
		t.Fatalf("RegisterFlags() error = %v", err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	return cmd
}

func TestLoadConfig_Defaults(t *testing.T) {
	cmd := newCommand(t, "-p", "archive", "-n", "Alice", "-e", "alice@example.com")

	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.MailboxPath != "archive" || cfg.Name != "Alice" || cfg.Email != "alice@example.com" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.TimestampFormat != DefaultTimestampFormat {
		t.Errorf("TimestampFormat = %q", cfg.TimestampFormat)
	}
	if cfg.UseMbox {
		t.Error("UseMbox should default to false")
	}
	if cfg.OutputDir != "." || cfg.LogLevel != "info" || !cfg.Progress {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_ShortFlags(t *testing.T) {
	cmd := newCommand(t,
		"-j", "Hangouts.json",
		"-n", "Alice",
		"-e", "alice@example.com",
		"-t", "%H:%M",
		"-m",
		"-o", "out/",
		"--log-level", "WARNING",
	)

	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.JSONPath != "Hangouts.json" || cfg.TimestampFormat != "%H:%M" || !cfg.UseMbox {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q, want out", cfg.OutputDir)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "nothing to do",
			args:    []string{"-n", "Alice", "-e", "alice@example.com"},
			wantErr: ErrNothingToDo,
		},
		{
			name: "missing name",
			args: []string{"-p", "archive", "-e", "alice@example.com"},
		},
		{
			name: "missing email",
			args: []string{"-p", "archive", "-n", "Alice"},
		},
		{
			name: "invalid log level",
			args: []string{"-p", "archive", "-n", "Alice", "-e", "a@example.com", "--log-level", "loud"},
		},
		{
			name: "include and exclude",
			args: []string{"-p", "archive", "-n", "Alice", "-e", "a@example.com", "--include-conversation", "a", "--exclude-conversation", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(newCommand(t, tt.args...))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gtalk-export.yaml")
	content := "name: Alice Example\n" +
		"email: alice@example.com\n" +
		"timestamp_format: \"%d.%m.%Y %H:%M\"\n" +
		"output_dir: transcripts\n" +
		"log_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newCommand(t, "--config", path, "-p", "archive", "-n", "Flag Name")
	cfg, err := LoadConfig(cmd)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Name != "Flag Name" {
		t.Errorf("Name = %q, flag should win over file", cfg.Name)
	}
	if cfg.Email != "alice@example.com" {
		t.Errorf("Email = %q", cfg.Email)
	}
	if cfg.TimestampFormat != "%d.%m.%Y %H:%M" {
		t.Errorf("TimestampFormat = %q", cfg.TimestampFormat)
	}
	if cfg.OutputDir != "transcripts" || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_FileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(newCommand(t, "--config", filepath.Join(dir, "missing.yaml"), "-p", "x")); err == nil {
		t.Error("expected error for missing config file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("name: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(newCommand(t, "--config", bad, "-p", "x")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
