package progress

import (
	"github.com/pterm/pterm"

	"github.com/dhcgn/gtalk-export/stats"
)

// Bar shows how far the mailbox pass has come. A disabled Bar ignores every call.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	enabled bool
}

// New creates a progress bar over total messages when enabled.
func New(total int, enabled bool) *Bar {
	bar := &Bar{total: total, enabled: enabled && total > 0}
	if !bar.enabled {
		return bar
	}

	pterm.Info.Printf("Messages in mailbox: %d\n", total)
	pb, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Converting messages").
		Start()
	if err != nil {
		bar.enabled = false
		return bar
	}
	bar.pb = pb
	return bar
}

// Update advances the bar for every scanned message.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	switch evt.Type {
	case stats.EventTypeScanned:
		b.pb.Increment()
	case stats.EventTypeWritten:
		if name := evt.Conversation; name != "" {
			if len(name) > 40 {
				name = name[:37] + "..."
			}
			b.pb.UpdateTitle("Writing " + name)
		}
	case stats.EventTypeError:
		if evt.Err != nil {
			pterm.Error.Printf("Error: %v\n", evt.Err)
		}
	}
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}
	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	b.pb.Stop()
	pterm.Success.Println("Mailbox converted")
}

func (b *Bar) Enabled() bool {
	return b.enabled
}
