package runner

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dhcgn/gtalk-export/chat"
	"github.com/dhcgn/gtalk-export/config"
	"github.com/dhcgn/gtalk-export/filter"
	"github.com/dhcgn/gtalk-export/hangouts"
	"github.com/dhcgn/gtalk-export/mailbox"
	"github.com/dhcgn/gtalk-export/progress"
	"github.com/dhcgn/gtalk-export/state"
	"github.com/dhcgn/gtalk-export/stats"
	"github.com/dhcgn/gtalk-export/transcript"
)

type Option func(*Runner)

// WithDecoder replaces the Takeout decoder used for the JSON path.
func WithDecoder(d hangouts.Decoder) Option {
	return func(r *Runner) {
		r.decoder = d
	}
}

// Runner converts the configured inputs one after the other. Nothing runs
// concurrently and each transcript file is opened only for a single batch.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	writer     *transcript.Writer
	filter     *filter.Filter
	normalizer *chat.Normalizer
	decoder    hangouts.Decoder
	collector  *stats.Collector
	bar        *progress.Bar

	since time.Time
}

func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	writer, err := transcript.NewWriter(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	f, err := filter.New(filter.Options{
		Include: cfg.IncludeConversation,
		Exclude: cfg.ExcludeConversation,
	})
	if err != nil {
		return nil, fmt.Errorf("conversation filter: %w", err)
	}

	r := &Runner{
		cfg:        cfg,
		logger:     logger,
		writer:     writer,
		filter:     f,
		normalizer: chat.NewNormalizer(cfg.TimestampFormat),
		decoder:    hangouts.NewTakeoutDecoder(),
		collector:  stats.NewCollector(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if f.Active() {
		logger.Info("conversation filter active", "include", len(cfg.IncludeConversation), "exclude", len(cfg.ExcludeConversation))
	}
	logger.Debug("transcripts will be appended", "dir", writer.Dir())
	return r, nil
}

func (r *Runner) Summary() stats.Summary {
	return r.collector.Snapshot()
}

// Start processes the mailbox and then the JSON export, whichever are configured.
func (r *Runner) Start() error {
	r.since = time.Now()

	if r.cfg.MailboxPath == "" && r.cfg.JSONPath == "" {
		return config.ErrNothingToDo
	}

	if r.cfg.MailboxPath != "" {
		r.logger.Info("processing mailbox", "path", r.cfg.MailboxPath, "mbox", r.cfg.UseMbox)
		if err := r.RunMailbox(); err != nil {
			return r.finish(fmt.Errorf("mailbox: %w", err))
		}
		r.logger.Info("finished processing mailbox")
	}

	if r.cfg.JSONPath != "" {
		r.logger.Info("processing json file", "path", r.cfg.JSONPath)
		if err := r.RunJSON(); err != nil {
			return r.finish(fmt.Errorf("json: %w", err))
		}
		r.logger.Info("finished processing json file")
	}

	return r.finish(nil)
}

// RunMailbox converts every chat email of the configured mailbox.
func (r *Runner) RunMailbox() error {
	format := mailbox.FormatMaildir
	if r.cfg.UseMbox {
		format = mailbox.FormatMbox
	}

	store, err := mailbox.Open(mailbox.Options{Path: r.cfg.MailboxPath, Format: format}, r.logger)
	if err != nil {
		return err
	}
	res, err := store.Load()
	if err != nil {
		return err
	}
	r.logger.Info("mailbox loaded", "path", store.Path(), "format", format, "messages", len(res.Messages), "malformed", res.Malformed)
	if res.Malformed > 0 {
		r.emit(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeMalformed, Count: res.Malformed})
	}

	r.bar = progress.New(len(res.Messages), r.cfg.Progress && r.cfg.LogLevel == "info")
	defer func() {
		r.bar.Stop()
		r.bar = nil
	}()

	// Thunderbird exports sometimes contain the same message twice.
	seen := state.NewSeenSet()
	for _, msg := range res.Messages {
		r.emit(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeScanned, MessageID: msg.ID})

		if !state.FirstSeen(seen, msg.ID) {
			r.emit(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeDuplicate, MessageID: msg.ID})
			continue
		}

		payload, err := chat.Classify(msg)
		if err != nil {
			return r.fail(stats.StageMailbox, err)
		}
		batch, err := r.normalizer.Normalize(payload)
		if err != nil {
			return r.fail(stats.StageMailbox, fmt.Errorf("%s: %w", msg.Source, err))
		}
		if batch.Skipped > 0 {
			r.emit(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeControl, MessageID: msg.ID, Count: batch.Skipped})
		}

		name := mailbox.ConversationName(msg.Header, r.cfg.Name)
		filename := transcript.MailboxFilename(name)
		if !r.filter.Allows(filename) {
			r.emit(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeFiltered, MessageID: msg.ID, Conversation: filename})
			continue
		}

		if err := r.writer.Append(filename, batch.Records); err != nil {
			return r.fail(stats.StageMailbox, err)
		}
		r.logger.Debug("message converted", "id", msg.ID, "kind", payload.Kind(), "conversation", filename, "lines", len(batch.Records))
		r.emit(stats.Event{Stage: stats.StageMailbox, Type: stats.EventTypeWritten, MessageID: msg.ID, Conversation: filename, Count: len(batch.Records)})
	}

	r.logger.Info("mailbox pass completed", "unique_messages", seen.Snapshot().Processed)
	return nil
}

// RunJSON converts a Hangouts export. Messages are written in the order the
// decoder returns them.
func (r *Runner) RunJSON() error {
	data, err := os.ReadFile(r.cfg.JSONPath)
	if err != nil {
		return r.fail(stats.StageJSON, fmt.Errorf("read json: %w", err))
	}

	conversations, err := r.decoder.Decode(data, r.cfg.TimestampFormat)
	if err != nil {
		return r.fail(stats.StageJSON, err)
	}
	r.logger.Info("json file first pass completed, writing transcripts", "conversations", len(conversations))

	for _, conv := range conversations {
		filename := transcript.MembersFilename(conv.Members, r.cfg.Name, r.cfg.Email)
		if !r.filter.Allows(filename) {
			r.emit(stats.Event{Stage: stats.StageJSON, Type: stats.EventTypeFiltered, Conversation: filename})
			continue
		}

		if err := r.writer.Append(filename, conv.Messages); err != nil {
			return r.fail(stats.StageJSON, err)
		}
		r.logger.Debug("conversation converted", "id", conv.ID, "conversation", filename, "lines", len(conv.Messages))
		r.emit(stats.Event{Stage: stats.StageJSON, Type: stats.EventTypeWritten, Conversation: filename, Count: len(conv.Messages)})
	}

	return nil
}

func (r *Runner) emit(evt stats.Event) {
	r.collector.Apply(evt)
	if r.bar != nil {
		r.bar.Update(evt)
	}
}

func (r *Runner) fail(stage stats.Stage, err error) error {
	r.emit(stats.Event{Stage: stage, Type: stats.EventTypeError, Err: err})
	return err
}

func (r *Runner) finish(err error) error {
	summary := r.collector.Snapshot()
	attrs := append(summary.LogAttrs(), "duration", time.Since(r.since))
	if err != nil {
		r.logger.Error("export failed", append(attrs, "err", err)...)
		return err
	}

	r.logger.Info("export completed", attrs...)
	return nil
}
