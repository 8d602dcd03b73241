package hangouts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/dhcgn/gtalk-export/model"
)

var ErrNoConversations = errors.New("no conversations found in hangouts export")

// Decoder turns a Hangouts export into conversations whose messages are
// already in display order.
type Decoder interface {
	Decode(data []byte, timestampFormat string) ([]model.Conversation, error)
}

// TakeoutDecoder reads Google Takeout Hangouts.json files. Both the older
// "conversation_state" layout and the newer "conversations" layout are accepted.
type TakeoutDecoder struct{}

func NewTakeoutDecoder() *TakeoutDecoder {
	return &TakeoutDecoder{}
}

type takeout struct {
	ConversationState []legacyConversation `json:"conversation_state"`
	Conversations     []currentConversation `json:"conversations"`
}

type legacyConversation struct {
	ConversationID conversationID `json:"conversation_id"`
	State          struct {
		Conversation conversationMeta `json:"conversation"`
		Events       []event          `json:"event"`
	} `json:"conversation_state"`
}

type currentConversation struct {
	Conversation struct {
		ConversationID conversationID   `json:"conversation_id"`
		Conversation   conversationMeta `json:"conversation"`
	} `json:"conversation"`
	Events []event `json:"events"`
}

type conversationID struct {
	ID string `json:"id"`
}

type conversationMeta struct {
	ParticipantData []participant `json:"participant_data"`
}

type participant struct {
	ID           participantID `json:"id"`
	FallbackName string        `json:"fallback_name"`
}

type participantID struct {
	GaiaID string `json:"gaia_id"`
	ChatID string `json:"chat_id"`
}

type event struct {
	SenderID    participantID `json:"sender_id"`
	Timestamp   string        `json:"timestamp"`
	ChatMessage *struct {
		MessageContent struct {
			Segment    []segment    `json:"segment"`
			Attachment []attachment `json:"attachment"`
		} `json:"message_content"`
	} `json:"chat_message"`
}

type segment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type attachment struct {
	EmbedItem struct {
		PlusPhoto *struct {
			URL string `json:"url"`
		} `json:"plus_photo"`
		Place *struct {
			URL string `json:"url"`
		} `json:"embeds.PlaceV2"`
	} `json:"embed_item"`
}

func (d *TakeoutDecoder) Decode(data []byte, timestampFormat string) ([]model.Conversation, error) {
	var doc takeout
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse hangouts json: %w", err)
	}
	if doc.ConversationState == nil && doc.Conversations == nil {
		return nil, ErrNoConversations
	}

	convs := make([]model.Conversation, 0, len(doc.ConversationState)+len(doc.Conversations))
	for _, c := range doc.ConversationState {
		conv, err := buildConversation(c.ConversationID.ID, c.State.Conversation, c.State.Events, timestampFormat)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	for _, c := range doc.Conversations {
		conv, err := buildConversation(c.Conversation.ConversationID.ID, c.Conversation.Conversation, c.Events, timestampFormat)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

type timedRecord struct {
	micros int64
	record model.Record
}

func buildConversation(id string, meta conversationMeta, events []event, timestampFormat string) (model.Conversation, error) {
	conv := model.Conversation{ID: id}
	names := make(map[string]string, len(meta.ParticipantData))
	for _, p := range meta.ParticipantData {
		name := p.FallbackName
		if name == "" {
			name = p.ID.GaiaID
		}
		names[p.ID.GaiaID] = name
		conv.Members = append(conv.Members, model.Member{ID: p.ID.GaiaID, Name: name})
	}

	timed := make([]timedRecord, 0, len(events))
	for _, ev := range events {
		if ev.ChatMessage == nil {
			continue
		}
		micros, err := strconv.ParseInt(ev.Timestamp, 10, 64)
		if err != nil {
			return model.Conversation{}, fmt.Errorf("conversation %s: parse timestamp %q: %w", id, ev.Timestamp, err)
		}

		sender, ok := names[ev.SenderID.GaiaID]
		if !ok {
			sender = ev.SenderID.GaiaID
		}

		timed = append(timed, timedRecord{
			micros: micros,
			record: model.Record{
				Timestamp: strftime.Format(timestampFormat, time.UnixMicro(micros).Local()),
				Speaker:   sender,
				Text:      messageText(ev),
			},
		})
	}

	sort.SliceStable(timed, func(i, j int) bool { return timed[i].micros < timed[j].micros })
	for _, tr := range timed {
		conv.Messages = append(conv.Messages, tr.record)
	}
	return conv, nil
}

func messageText(ev event) string {
	var sb strings.Builder
	content := ev.ChatMessage.MessageContent
	for _, seg := range content.Segment {
		switch seg.Type {
		case "LINE_BREAK":
			sb.WriteString("\n")
		default:
			sb.WriteString(seg.Text)
		}
	}
	for _, att := range content.Attachment {
		url := ""
		switch {
		case att.EmbedItem.PlusPhoto != nil:
			url = att.EmbedItem.PlusPhoto.URL
		case att.EmbedItem.Place != nil:
			url = att.EmbedItem.Place.URL
		}
		if url == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(url)
	}
	return sb.String()
}
