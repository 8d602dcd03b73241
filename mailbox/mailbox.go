package mailbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/dhcgn/gtalk-export/chat"
	"github.com/dhcgn/gtalk-export/model"
)

var (
	ErrMalformed     = errors.New("message has no headers")
	ErrUnknownFormat = errors.New("unknown mailbox format")
)

type Format int

const (
	FormatMaildir Format = iota
	FormatMbox
)

func (f Format) String() string {
	switch f {
	case FormatMaildir:
		return "maildir"
	case FormatMbox:
		return "mbox"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

type Options struct {
	Path   string
	Format Format
}

// LoadResult holds every well-formed message of a store, sorted by Date.
type LoadResult struct {
	Messages  []model.Message
	Malformed int
}

type Store struct {
	path   string
	format Format
	logger *slog.Logger
}

// Open validates the store location. For Maildir stores the new/ and tmp/
// subdirectories are created when missing.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("mailbox path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Format {
	case FormatMbox:
	case FormatMaildir:
		for _, sub := range []string{"new", "tmp"} {
			if err := os.MkdirAll(filepath.Join(path, sub), 0o755); err != nil {
				return nil, fmt.Errorf("create maildir %s: %w", sub, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, opts.Format)
	}

	return &Store{path: path, format: opts.Format, logger: logger}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the whole store into memory and sorts it by Date ascending.
// Messages without headers are skipped with a warning.
func (s *Store) Load() (LoadResult, error) {
	var res LoadResult

	collect := func(source string, raw []byte) error {
		msg, err := parseMail(source, raw)
		if err != nil {
			s.logger.Warn("skipping malformed message", "source", source, "err", err)
			res.Malformed++
			return nil
		}
		res.Messages = append(res.Messages, msg)
		return nil
	}

	var err error
	switch s.format {
	case FormatMbox:
		err = s.walkMbox(collect)
	case FormatMaildir:
		err = s.walkMaildir(collect)
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		return LoadResult{}, err
	}

	sort.SliceStable(res.Messages, func(i, j int) bool {
		return res.Messages[i].Date.Before(res.Messages[j].Date)
	})

	s.logger.Debug("mailbox loaded", "path", s.path, "format", s.format, "messages", len(res.Messages), "malformed", res.Malformed)
	return res, nil
}

func (s *Store) walkMbox(fn func(source string, raw []byte) error) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	for idx := 0; ; idx++ {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return fmt.Errorf("message %d read: %w", idx, err)
		}
		if err := fn(fmt.Sprintf("%s#%d", s.path, idx), raw); err != nil {
			return err
		}
	}
}

func (s *Store) walkMaildir(fn func(source string, raw []byte) error) error {
	for _, sub := range []string{"new", "cur"} {
		dir := filepath.Join(s.path, sub)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read maildir %s: %w", sub, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read maildir message: %w", err)
			}
			if err := fn(path, raw); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseMail(source string, raw []byte) (model.Message, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	h, err := textproto.ReadHeader(br)
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Len() == 0 {
		return model.Message{}, ErrMalformed
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return model.Message{}, err
	}

	header := mail.Header{Header: message.Header{Header: h}}
	// Undated messages sort first.
	date, _ := header.Date()

	return model.Message{
		ID:     h.Get("Message-ID"),
		Date:   date,
		Header: header,
		Body:   body,
		Source: source,
	}, nil
}

// ConversationName derives the conversation a message belongs to from its
// subject, falling back to the correspondent's display name. The viewer is
// recognized by comparing the To display name with myName verbatim.
func ConversationName(h mail.Header, myName string) string {
	name := strings.ReplaceAll(h.Get("Subject"), "Chat with ", "")
	if name != "" {
		return name
	}

	toName := chat.DisplayName(h.Get("To"))
	if toName != myName {
		return toName
	}
	return chat.DisplayName(h.Get("From"))
}
