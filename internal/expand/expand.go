package expand

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"pixpress/internal/config"
	"pixpress/internal/logging"
)

// Expander turns dropped roots (files or directories) into the flat list of
// candidate files a batch is built from.
type Expander struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New returns an Expander filtering directory walks to cfg's supported
// extensions. A nil logger discards diagnostics.
func New(cfg *config.Config, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Expander{cfg: cfg, logger: logging.WithComponent(logger, "expand")}
}

// Expand resolves every root into concrete file paths. Directories are walked
// in lexical order and filtered to supported image extensions; plain files
// pass through untouched so an explicit drop is always attempted. A root that
// cannot be inspected or walked degrades to itself rather than failing the
// batch, leaving the per-item transform to surface the real error.
func (e *Expander) Expand(roots []string) []string {
	files := make([]string, 0, len(roots))
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			e.logger.Warn("cannot inspect drop root, passing through",
				logging.FieldSource, root, logging.FieldError, err)
			files = append(files, root)
			continue
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		files = append(files, e.walk(root)...)
	}
	return files
}

func (e *Expander) walk(root string) []string {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if e.cfg.SupportsExtension(filepath.Ext(path)) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		e.logger.Warn("directory walk failed, passing root through",
			logging.FieldSource, root, logging.FieldError, err)
		return []string{root}
	}
	return found
}
