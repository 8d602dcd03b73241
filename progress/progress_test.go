package progress

import (
	"testing"

	"github.com/dhcgn/gtalk-export/stats"
)

func TestBar_Disabled(t *testing.T) {
	bar := New(10, false)
	if bar.Enabled() {
		t.Fatal("expected disabled bar")
	}
	// A disabled bar must tolerate every call.
	bar.Update(stats.Event{Type: stats.EventTypeScanned, MessageID: "<a@example.com>"})
	bar.Stop()
}

func TestBar_EmptyMailbox(t *testing.T) {
	if New(0, true).Enabled() {
		t.Fatal("expected bar over zero messages to stay disabled")
	}
}
