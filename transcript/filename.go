package transcript

import (
	"regexp"
	"strings"

	"github.com/dhcgn/gtalk-export/model"
)

const (
	// MaxStemLength keeps file names below the common 255 byte limit once the
	// extension is appended.
	MaxStemLength = 250
	Extension     = ".txt"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Sanitize replaces every character outside [A-Za-z0-9._-] with an underscore.
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// MailboxFilename derives the transcript file name for a mailbox conversation.
func MailboxFilename(name string) string {
	return truncate(Sanitize(name)) + Extension
}

// MembersFilename derives the transcript file name for a Hangouts conversation
// from its members, leaving out the viewer. Conversations with the same
// remaining members share a file.
func MembersFilename(members []model.Member, myName, myEmail string) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		if m.Name == myName || m.Name == myEmail {
			continue
		}
		names = append(names, m.Name)
	}
	return Sanitize(truncate(strings.Join(names, "_")) + Extension)
}

func truncate(s string) string {
	if len(s) > MaxStemLength {
		return s[:MaxStemLength]
	}
	return s
}
