package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dhcgn/gtalk-export/chat"
	"github.com/dhcgn/gtalk-export/mailbox"
	"github.com/dhcgn/gtalk-export/state"
	"github.com/dhcgn/gtalk-export/stats"
	"github.com/dhcgn/gtalk-export/transcript"
)

var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type statsOptions struct {
	mailboxPath string
	useMbox     bool
	name        string
	reportDir   string
	topN        int
}

// Report is what the stats command found in a mailbox.
type Report struct {
	Messages      int
	Malformed     int
	Duplicates    int
	Conversations map[string]int
	Kinds         map[string]int
}

// NewStatsCommand returns the subcommand that inspects a mailbox without
// writing any transcript.
func NewStatsCommand() *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Analyse a mailbox and show per-conversation statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.mailboxPath == "" {
				return fmt.Errorf("--mailbox-path is required")
			}

			report, err := BuildReport(opts.mailboxPath, opts.useMbox, opts.name, slog.Default())
			if err != nil {
				return fmt.Errorf("analyse mailbox: %w", err)
			}

			printReport(cmd.OutOrStdout(), report, opts.topN)

			if err := saveCSVReports(report, opts.reportDir); err != nil {
				return fmt.Errorf("save CSV reports: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("Reports saved to directory: "+opts.reportDir))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.mailboxPath, "mailbox-path", "p", "", "The location of the IMAP Maildir or mbox to analyse")
	flags.BoolVarP(&opts.useMbox, "mbox", "m", false, "Use mbox instead of Maildir")
	flags.StringVarP(&opts.name, "name", "n", "", "The chat participant name, used to name conversations without a subject")
	flags.StringVarP(&opts.reportDir, "output", "o", ".", "Output directory for CSV reports")
	flags.IntVar(&opts.topN, "top", 10, "Number of top conversations to display")

	return cmd
}

// BuildReport loads a mailbox the same way the export does, sorted and
// deduplicated, and counts messages per conversation and payload kind.
func BuildReport(path string, useMbox bool, myName string, logger *slog.Logger) (Report, error) {
	format := mailbox.FormatMaildir
	if useMbox {
		format = mailbox.FormatMbox
	}

	store, err := mailbox.Open(mailbox.Options{Path: path, Format: format}, logger)
	if err != nil {
		return Report{}, err
	}
	res, err := store.Load()
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Malformed:     res.Malformed,
		Conversations: make(map[string]int),
		Kinds:         make(map[string]int),
	}

	seen := state.NewSeenSet()
	for _, msg := range res.Messages {
		if !state.FirstSeen(seen, msg.ID) {
			report.Duplicates++
			continue
		}
		report.Messages++

		payload, err := chat.Classify(msg)
		if err != nil {
			return Report{}, err
		}
		report.Kinds[payload.Kind().String()]++
		report.Conversations[mailbox.ConversationName(msg.Header, myName)]++
	}

	return report, nil
}

func printReport(out io.Writer, report Report, topN int) {
	fmt.Fprintln(out, sectionStyle.Render("Mailbox summary"))
	fmt.Fprintf(out, "Messages: %s  Duplicates: %s  Malformed: %s\n\n",
		countStyle.Render(strconv.Itoa(report.Messages)),
		countStyle.Render(strconv.Itoa(report.Duplicates)),
		countStyle.Render(strconv.Itoa(report.Malformed)))

	fmt.Fprintln(out, sectionStyle.Render("Payload kinds"))
	for _, c := range stats.Top(report.Kinds, 0) {
		fmt.Fprintf(out, "  %s: %s\n", c.Key, countStyle.Render(strconv.Itoa(c.Value)))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, sectionStyle.Render(fmt.Sprintf("Top %d conversations", topN)))
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, titleStyle.Render("#")+"\t"+titleStyle.Render("Conversation")+"\t"+titleStyle.Render("File")+"\t"+titleStyle.Render("Messages")+"\t")
	for i, c := range stats.Top(report.Conversations, topN) {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", i+1, c.Key, dimStyle.Render(transcript.MailboxFilename(c.Key)), countStyle.Render(strconv.Itoa(c.Value)))
	}
	_ = w.Flush()
}

func saveCSVReports(report Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tables := []struct {
		filename string
		header   []string
		counts   map[string]int
		withFile bool
	}{
		{filename: "report_conversations.csv", header: []string{"Conversation", "File", "Messages"}, counts: report.Conversations, withFile: true},
		{filename: "report_kinds.csv", header: []string{"Kind", "Messages"}, counts: report.Kinds},
	}

	for _, table := range tables {
		rows := [][]string{table.header}
		for _, c := range stats.Top(table.counts, 0) {
			if table.withFile {
				rows = append(rows, []string{c.Key, transcript.MailboxFilename(c.Key), strconv.Itoa(c.Value)})
				continue
			}
			rows = append(rows, []string{c.Key, strconv.Itoa(c.Value)})
		}
		if err := writeCSV(filepath.Join(dir, table.filename), rows); err != nil {
			return err
		}
	}

	return nil
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return file.Close()
}
