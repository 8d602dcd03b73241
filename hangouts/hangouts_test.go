package hangouts

import (
	_ "embed"
	"errors"
	"testing"
	"time"

	"github.com/dhcgn/gtalk-export/model"
)

//go:embed testdata/legacy.json
var legacyJSON []byte

//go:embed testdata/current.json
var currentJSON []byte

const testFormat = "%Y-%m-%d %H:%M:%S"

func localTS(micros int64) string {
	return time.UnixMicro(micros).Local().Format("2006-01-02 15:04:05")
}

func TestTakeoutDecoder_Legacy(t *testing.T) {
	convs, err := NewTakeoutDecoder().Decode(legacyJSON, testFormat)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("conversations = %d, want 1", len(convs))
	}
	conv := convs[0]

	if conv.ID != "conv-1" {
		t.Errorf("ID = %q", conv.ID)
	}
	wantMembers := []model.Member{
		{ID: "100", Name: "Alice Example"},
		{ID: "200", Name: "Bob Example"},
		{ID: "300", Name: "300"},
	}
	if len(conv.Members) != len(wantMembers) {
		t.Fatalf("members = %+v", conv.Members)
	}
	for i := range wantMembers {
		if conv.Members[i] != wantMembers[i] {
			t.Errorf("member[%d] = %+v, want %+v", i, conv.Members[i], wantMembers[i])
		}
	}

	want := []model.Record{
		{Timestamp: localTS(1400000000000000), Speaker: "Alice Example", Text: "first"},
		{Timestamp: localTS(1400000060000000), Speaker: "Bob Example", Text: "second\nhttp://example.com"},
		{Timestamp: localTS(1400000120000000), Speaker: "300", Text: "https://photos.example.com/1.jpg"},
	}
	if len(conv.Messages) != len(want) {
		t.Fatalf("messages = %+v", conv.Messages)
	}
	for i := range want {
		if conv.Messages[i] != want[i] {
			t.Errorf("message[%d] = %+v, want %+v", i, conv.Messages[i], want[i])
		}
	}
}

func TestTakeoutDecoder_Current(t *testing.T) {
	convs, err := NewTakeoutDecoder().Decode(currentJSON, "%H:%M")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("conversations = %d, want 1", len(convs))
	}

	msgs := convs[0].Messages
	if len(msgs) != 2 {
		t.Fatalf("messages = %+v", msgs)
	}
	wantTS := time.UnixMicro(1500000000000000).Local().Format("15:04")
	if msgs[0].Timestamp != wantTS || msgs[0].Speaker != "Carol" || msgs[0].Text != "hey &amp; hi" {
		t.Errorf("message[0] = %+v", msgs[0])
	}
	// Unknown senders fall back to their id.
	if msgs[1].Speaker != "999" {
		t.Errorf("message[1].Speaker = %q, want 999", msgs[1].Speaker)
	}
}

func TestTakeoutDecoder_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{name: "invalid json", data: `{"conversation_state": [`},
		{name: "no conversations", data: `{"other": 1}`, want: ErrNoConversations},
		{name: "bad timestamp", data: `{"conversations": [{"events": [{"timestamp": "soon", "chat_message": {}}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTakeoutDecoder().Decode([]byte(tt.data), testFormat)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
