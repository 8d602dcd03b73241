package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const DefaultTimestampFormat = "%Y-%m-%d %H:%M:%S"

var ErrNothingToDo = errors.New("no mbox or JSON provided -- nothing to do")

// Config captures all command-line options required to run the export. It is
// built once and passed by value to both processing paths.
type Config struct {
	MailboxPath         string
	JSONPath            string
	Name                string
	Email               string
	TimestampFormat     string
	UseMbox             bool
	OutputDir           string
	LogLevel            string
	LogDir              string
	Progress            bool
	IncludeConversation []string
	ExcludeConversation []string
}

// fileConfig is the optional YAML defaults file given with --config.
type fileConfig struct {
	Name            string `yaml:"name"`
	Email           string `yaml:"email"`
	TimestampFormat string `yaml:"timestamp_format"`
	OutputDir       string `yaml:"output_dir"`
	LogLevel        string `yaml:"log_level"`
	LogDir          string `yaml:"log_dir"`
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.StringP("mailbox-path", "p", "", "The location of the IMAP Maildir or mbox to parse")
	flags.StringP("json-path", "j", "", "The location of the Takeout Hangouts JSON to parse")
	flags.StringP("name", "n", "", "The chat participant name whose files are being parsed")
	flags.StringP("email", "e", "", "The chat participant email whose files are being parsed")
	flags.StringP("timestamp-format", "t", DefaultTimestampFormat, "Timestamp format (strftime) to display in output logs")
	flags.BoolP("mbox", "m", false, "Use mbox instead of Maildir")
	flags.StringP("output-dir", "o", ".", "Directory the transcript files are appended to")
	flags.String("config", "", "YAML file with defaults for name, email, timestamp_format, output_dir, log_level and log_dir")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for a copy of the log output")
	flags.Bool("progress", true, "Show a progress bar while converting the mailbox (log level info only)")
	flags.StringArray("include-conversation", nil, "Regex allow-list applied to transcript file names (mutually exclusive with exclude)")
	flags.StringArray("exclude-conversation", nil, "Regex block-list applied to transcript file names (mutually exclusive with include)")

	if err := cmd.MarkFlagFilename("json-path", "json"); err != nil {
		return err
	}
	if err := cmd.MarkFlagFilename("config", "yaml", "yml"); err != nil {
		return err
	}
	if err := cmd.MarkFlagDirname("output-dir"); err != nil {
		return err
	}

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	mailboxPath, err := flags.GetString("mailbox-path")
	if err != nil {
		return Config{}, err
	}
	jsonPath, err := flags.GetString("json-path")
	if err != nil {
		return Config{}, err
	}
	name, err := flags.GetString("name")
	if err != nil {
		return Config{}, err
	}
	email, err := flags.GetString("email")
	if err != nil {
		return Config{}, err
	}
	timestampFormat, err := flags.GetString("timestamp-format")
	if err != nil {
		return Config{}, err
	}
	useMbox, err := flags.GetBool("mbox")
	if err != nil {
		return Config{}, err
	}
	outputDir, err := flags.GetString("output-dir")
	if err != nil {
		return Config{}, err
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	showProgress, err := flags.GetBool("progress")
	if err != nil {
		return Config{}, err
	}
	includeConversation, err := flags.GetStringArray("include-conversation")
	if err != nil {
		return Config{}, err
	}
	excludeConversation, err := flags.GetStringArray("exclude-conversation")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		MailboxPath:         strings.TrimSpace(mailboxPath),
		JSONPath:            strings.TrimSpace(jsonPath),
		Name:                name,
		Email:               email,
		TimestampFormat:     timestampFormat,
		UseMbox:             useMbox,
		OutputDir:           outputDir,
		LogLevel:            logLevel,
		LogDir:              logDir,
		Progress:            showProgress,
		IncludeConversation: includeConversation,
		ExcludeConversation: excludeConversation,
	}

	if configPath != "" {
		fc, err := readFile(configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = merge(cfg, fc, cmd)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// merge fills every option that was not given on the command line from the file.
func merge(cfg Config, fc fileConfig, cmd *cobra.Command) Config {
	flags := cmd.Flags()
	pick := func(flag, current, fromFile string) string {
		if flags.Changed(flag) || fromFile == "" {
			return current
		}
		return fromFile
	}

	cfg.Name = pick("name", cfg.Name, fc.Name)
	cfg.Email = pick("email", cfg.Email, fc.Email)
	cfg.TimestampFormat = pick("timestamp-format", cfg.TimestampFormat, fc.TimestampFormat)
	cfg.OutputDir = pick("output-dir", cfg.OutputDir, fc.OutputDir)
	cfg.LogLevel = pick("log-level", cfg.LogLevel, fc.LogLevel)
	cfg.LogDir = pick("log-dir", cfg.LogDir, fc.LogDir)
	return cfg
}

func validateConfig(cfg Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("--name is required")
	}
	if cfg.Email == "" {
		return fmt.Errorf("--email is required")
	}
	if cfg.MailboxPath == "" && cfg.JSONPath == "" {
		return ErrNothingToDo
	}
	if cfg.TimestampFormat == "" {
		return fmt.Errorf("--timestamp-format must not be empty")
	}
	if len(cfg.IncludeConversation) > 0 && len(cfg.ExcludeConversation) > 0 {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
