package chat

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ncruces/go-strftime"

	"github.com/dhcgn/gtalk-export/model"
)

const DefaultTimestampFormat = "%Y-%m-%d %H:%M:%S"

var (
	ErrMissingTimestamp = errors.New("chat message has no time element")
	ErrMissingDate      = errors.New("chat email has no parsable Date header")

	addressPart = regexp.MustCompile(` <[^>]*>`)
)

// Batch is the output of normalizing one payload. Skipped counts XML control
// events (presence, time gaps) that carry no body.
type Batch struct {
	Records []model.Record
	Skipped int
}

type Normalizer struct {
	TimestampFormat string
}

func NewNormalizer(timestampFormat string) *Normalizer {
	if timestampFormat == "" {
		timestampFormat = DefaultTimestampFormat
	}
	return &Normalizer{TimestampFormat: timestampFormat}
}

func (n *Normalizer) Normalize(p Payload) (Batch, error) {
	switch p := p.(type) {
	case Hybrid:
		rec, err := n.hybrid(p)
		if err != nil {
			return Batch{}, err
		}
		return Batch{Records: []model.Record{rec}}, nil
	case Session:
		return n.session(p)
	default:
		return Batch{}, fmt.Errorf("unsupported payload %T", p)
	}
}

// FormatTime renders t with the configured strftime pattern.
func (n *Normalizer) FormatTime(t time.Time) string {
	return strftime.Format(n.TimestampFormat, t)
}

func (n *Normalizer) hybrid(p Hybrid) (model.Record, error) {
	body := p.Body
	// Only decode when declared: 7bit bodies contain literal '=' characters.
	if p.QuotedPrintable {
		decoded, err := decodeQuotedPrintable(body)
		if err != nil {
			return model.Record{}, fmt.Errorf("decode hybrid body: %w", err)
		}
		body = decoded
	} else if !utf8.Valid(body) {
		return model.Record{}, fmt.Errorf("hybrid body: %w", ErrInvalidUTF8)
	}

	date, err := p.Header.Date()
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", ErrMissingDate, err)
	}

	return model.Record{
		// The header's own zone is kept, the wall clock is what was shown in the chat.
		Timestamp: n.FormatTime(date),
		Speaker:   DisplayName(p.Header.Get("From")),
		Text:      html.UnescapeString(strings.TrimSpace(string(body))),
	}, nil
}

type sessionMessage struct {
	From string `xml:"from,attr"`
	Time *struct {
		MS string `xml:"ms,attr"`
	} `xml:"time"`
	Body *struct {
		Text string `xml:",chardata"`
	} `xml:"body"`
}

func (n *Normalizer) session(p Session) (Batch, error) {
	// The format never declares its transfer encoding but is always quoted-printable.
	content, err := decodeQuotedPrintable(p.Content)
	if err != nil {
		return Batch{}, fmt.Errorf("decode chat session: %w", err)
	}
	if idx := bytes.IndexByte(content, '<'); idx > 0 {
		content = content[idx:]
	}

	var batch Batch
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Entity = xml.HTMLEntity
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return batch, nil
		}
		if err != nil {
			return Batch{}, fmt.Errorf("parse chat session: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "message" {
			continue
		}

		var msg sessionMessage
		if err := dec.DecodeElement(&msg, &start); err != nil {
			return Batch{}, fmt.Errorf("parse chat message: %w", err)
		}
		if msg.Body == nil {
			batch.Skipped++
			continue
		}

		ts, err := n.sessionTime(msg)
		if err != nil {
			return Batch{}, err
		}
		batch.Records = append(batch.Records, model.Record{
			Timestamp: ts,
			Speaker:   msg.From,
			Text:      msg.Body.Text,
		})
	}
}

func (n *Normalizer) sessionTime(msg sessionMessage) (string, error) {
	if msg.Time == nil || msg.Time.MS == "" {
		return "", fmt.Errorf("message from %q: %w", msg.From, ErrMissingTimestamp)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(msg.Time.MS), 10, 64)
	if err != nil {
		return "", fmt.Errorf("message from %q: parse time %q: %w", msg.From, msg.Time.MS, err)
	}
	return n.FormatTime(time.UnixMilli(ms).Local()), nil
}

// DisplayName strips the " <address>" part of an address header.
func DisplayName(header string) string {
	return addressPart.ReplaceAllString(header, "")
}
