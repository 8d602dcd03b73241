package state

// Tracker remembers which Message-IDs were already written during a run.
type Tracker interface {
	AlreadyProcessed(messageID string) bool
	MarkProcessed(messageID string)
	Snapshot() Snapshot
}

type Snapshot struct {
	Processed int
}

// SeenSet is an in-memory Tracker. It only grows and is discarded with the run,
// so a second run over the same mailbox writes everything again.
type SeenSet struct {
	seen map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{seen: make(map[string]struct{})}
}

func (s *SeenSet) AlreadyProcessed(messageID string) bool {
	_, ok := s.seen[messageID]
	return ok
}

func (s *SeenSet) MarkProcessed(messageID string) {
	s.seen[messageID] = struct{}{}
}

func (s *SeenSet) Snapshot() Snapshot {
	return Snapshot{Processed: len(s.seen)}
}

// FirstSeen marks messageID and reports whether this is its first occurrence.
func FirstSeen(t Tracker, messageID string) bool {
	if t.AlreadyProcessed(messageID) {
		return false
	}
	t.MarkProcessed(messageID)
	return true
}
