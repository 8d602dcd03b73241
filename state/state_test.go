package state

import (
	"fmt"
	"testing"
)

func TestSeenSet_FirstSeen(t *testing.T) {
	seen := NewSeenSet()

	if !FirstSeen(seen, "<a@example.com>") {
		t.Fatal("expected first occurrence to be reported as new")
	}
	if FirstSeen(seen, "<a@example.com>") {
		t.Fatal("expected second occurrence to be reported as duplicate")
	}
	if !FirstSeen(seen, "<b@example.com>") {
		t.Fatal("expected different id to be reported as new")
	}

	if got := seen.Snapshot().Processed; got != 2 {
		t.Fatalf("Snapshot().Processed = %d, want 2", got)
	}
}

func TestSeenSet_EmptyID(t *testing.T) {
	seen := NewSeenSet()

	// Messages without a Message-ID share the empty id.
	if !FirstSeen(seen, "") {
		t.Fatal("expected first empty id to be new")
	}
	if FirstSeen(seen, "") {
		t.Fatal("expected second empty id to be a duplicate")
	}
}

func BenchmarkSeenSet_FirstSeen(b *testing.B) {
	seen := NewSeenSet()
	for i := 0; i < b.N; i++ {
		FirstSeen(seen, fmt.Sprintf("msg-%d", i%1000))
	}
}
