package batch

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Batch is the set of items from one drop event plus the ordered list of
// original drop roots. The roots are needed later to compute relative archive
// member names; item order is the expander's output order.
type Batch struct {
	ID        string
	Label     string
	Roots     []string
	CreatedAt time.Time

	tracker *Tracker
}

// New creates a batch for the given drop roots and expanded file list.
func New(roots, files []string) *Batch {
	b := &Batch{
		ID:        uuid.NewString(),
		Label:     InferLabel(roots),
		Roots:     append([]string{}, roots...),
		CreatedAt: time.Now().UTC(),
		tracker:   NewTracker(),
	}
	for _, file := range files {
		b.tracker.Create(file)
	}
	return b
}

// Tracker returns the tracker owning this batch's items.
func (b *Batch) Tracker() *Tracker {
	return b.tracker
}

// Items returns a snapshot of the batch's items in submission order.
func (b *Batch) Items() []*Item {
	return b.tracker.Items()
}

var labelCaser = cases.Title(language.English)

// InferLabel derives a display label for a batch from its drop roots:
// the first root's base name, title-cased, with a "+N" suffix when more
// roots were dropped alongside it.
func InferLabel(roots []string) string {
	if len(roots) == 0 {
		return "Empty Batch"
	}
	base := filepath.Base(filepath.Clean(roots[0]))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	stem = strings.TrimSpace(stem)
	if stem == "" {
		return "Batch"
	}
	label := labelCaser.String(stem)
	if extra := len(roots) - 1; extra > 0 {
		return fmt.Sprintf("%s +%d", label, extra)
	}
	return label
}
