package stats

import (
	"sort"
)

type Stage string

const (
	StageMailbox Stage = "mailbox"
	StageJSON    Stage = "json"
)

type EventType string

const (
	EventTypeScanned   EventType = "scanned"
	EventTypeMalformed EventType = "malformed"
	EventTypeDuplicate EventType = "duplicate"
	EventTypeFiltered  EventType = "filtered"
	EventTypeControl   EventType = "control"
	EventTypeWritten   EventType = "written"
	EventTypeError     EventType = "error"
)

type Event struct {
	Stage        Stage
	Type         EventType
	MessageID    string
	Conversation string
	Count        int
	Err          error
}

type Summary struct {
	Scanned       int
	Malformed     int
	Duplicates    int
	Filtered      int
	Control       int
	Written       int
	Conversations int
	Errors        int
	LastError     error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"malformed", s.Malformed,
		"duplicates", s.Duplicates,
		"filtered", s.Filtered,
		"controlEvents", s.Control,
		"linesWritten", s.Written,
		"conversations", s.Conversations,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector tallies run events. Count defaults to one when unset, except for
// written events where it is the number of lines.
type Collector struct {
	summary       Summary
	conversations map[string]struct{}
}

func NewCollector() *Collector {
	return &Collector{conversations: make(map[string]struct{})}
}

func (c *Collector) Apply(evt Event) {
	n := evt.Count
	if n == 0 {
		n = 1
	}

	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned += n
	case EventTypeMalformed:
		c.summary.Malformed += n
	case EventTypeDuplicate:
		c.summary.Duplicates += n
	case EventTypeFiltered:
		c.summary.Filtered += n
	case EventTypeControl:
		c.summary.Control += n
	case EventTypeWritten:
		c.summary.Written += evt.Count
		if evt.Conversation != "" {
			c.conversations[evt.Conversation] = struct{}{}
			c.summary.Conversations = len(c.conversations)
		}
	case EventTypeError:
		c.summary.Errors += n
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	return c.summary
}

// Count is one entry of a frequency table.
type Count struct {
	Key   string
	Value int
}

// Top returns the limit most frequent keys, ties broken by key. A limit <= 0
// returns every key.
func Top(m map[string]int, limit int) []Count {
	pairs := make([]Count, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Count{Key: k, Value: v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})

	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
