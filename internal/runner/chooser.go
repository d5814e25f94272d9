package runner

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"pixpress/internal/aggregate"
	"pixpress/internal/batch"
)

// DestinationChooser decides where a batch's deliverable lands.
type DestinationChooser interface {
	// DestDir is the directory deliverables will be written to, exposed so
	// preflight can verify it before any work starts.
	DestDir(b *batch.Batch) string
	// Choose returns the final path for the batch's deliverable. ok=false
	// means the choice was declined; nothing is packaged or saved and the
	// staged outputs stay where they are.
	Choose(b *batch.Batch, d aggregate.Disposition) (path string, ok bool, err error)
}

// DirChooser delivers into a fixed directory, or next to the first drop root
// when none is configured. Names that already exist on disk get a " (N)"
// counter, the same scheme archive member names use.
type DirChooser struct {
	Dir string
}

func (c *DirChooser) DestDir(b *batch.Batch) string {
	if c.Dir != "" {
		return c.Dir
	}
	if len(b.Roots) == 0 {
		return "."
	}
	return filepath.Dir(filepath.Clean(b.Roots[0]))
}

func (c *DirChooser) Choose(b *batch.Batch, d aggregate.Disposition) (string, bool, error) {
	dir := c.DestDir(b)
	var name string
	switch d.Kind {
	case aggregate.KindSingle:
		name = path.Base(d.SuggestedName)
	case aggregate.KindArchive:
		name = b.Label + ".zip"
	default:
		return "", false, fmt.Errorf("no deliverable for disposition %q", d.Kind)
	}
	return uniquePath(filepath.Join(dir, name)), true, nil
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, counter, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

var _ DestinationChooser = (*DirChooser)(nil)
