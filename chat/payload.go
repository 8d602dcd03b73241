package chat

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"github.com/dhcgn/gtalk-export/model"
)

var (
	ErrNoParts             = errors.New("multipart chat message has no parts")
	ErrUnsupportedEncoding = errors.New("unsupported content transfer encoding")
)

type Kind int

const (
	KindHybrid Kind = iota
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindHybrid:
		return "hybrid"
	case KindSession:
		return "session"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Payload is the shape of a chat email: either a Hybrid single message or a
// Session carrying a legacy XML transcript.
type Payload interface {
	Kind() Kind
}

// Hybrid is a single chat line stored as a flat email body.
type Hybrid struct {
	Header          mail.Header
	Body            []byte
	QuotedPrintable bool
}

func (Hybrid) Kind() Kind { return KindHybrid }

// Session is a whole Google Talk conversation stored as XML in the first
// MIME part. Content is left exactly as it appears in the mailbox.
type Session struct {
	Header  mail.Header
	Content []byte
}

func (Session) Kind() Kind { return KindSession }

// Classify inspects the message structure and returns the matching payload.
func Classify(msg model.Message) (Payload, error) {
	mediaType, params, err := msg.Header.ContentType()
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		cte := strings.ToLower(strings.TrimSpace(msg.Header.Get("Content-Transfer-Encoding")))
		switch cte {
		case "", "7bit", "8bit", "quoted-printable":
		default:
			return nil, fmt.Errorf("%s: %w %q", msg.Source, ErrUnsupportedEncoding, cte)
		}
		return Hybrid{
			Header:          msg.Header,
			Body:            msg.Body,
			QuotedPrintable: cte == "quoted-printable",
		}, nil
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%s: multipart message without boundary", msg.Source)
	}

	mr := textproto.NewMultipartReader(bytes.NewReader(msg.Body), boundary)
	part, err := mr.NextPart()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", msg.Source, ErrNoParts)
		}
		return nil, fmt.Errorf("%s: read first part: %w", msg.Source, err)
	}
	content, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("%s: read first part: %w", msg.Source, err)
	}

	return Session{Header: msg.Header, Content: content}, nil
}
