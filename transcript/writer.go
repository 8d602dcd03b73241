package transcript

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhcgn/gtalk-export/model"
)

// Writer appends records to per-conversation transcript files. It holds no
// file open between calls and does no locking.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) Dir() string {
	return w.dir
}

// Append writes the records to filename in append mode, creating it if needed.
func (w *Writer) Append(filename string, records []model.Record) (err error) {
	path := filepath.Join(w.dir, filename)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close transcript: %w", cerr)
		}
	}()

	buf := bufio.NewWriter(file)
	for _, rec := range records {
		if _, err := buf.WriteString(rec.Line()); err != nil {
			return fmt.Errorf("write transcript %s: %w", filename, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush transcript %s: %w", filename, err)
	}
	return nil
}
