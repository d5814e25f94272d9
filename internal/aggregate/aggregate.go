package aggregate

import (
	"fmt"
	"path"
	"strings"

	"pixpress/internal/batch"
)

// Kind identifies how a batch's successful outputs are delivered.
type Kind string

const (
	// KindEmpty means nothing succeeded; there is nothing to deliver.
	KindEmpty Kind = "empty"
	// KindSingle means one file was dropped and optimized; it is saved directly.
	KindSingle Kind = "single"
	// KindArchive means outputs are bundled into a zip archive.
	KindArchive Kind = "archive"
)

// Pair maps a successfully optimized output file to its archive member name.
type Pair struct {
	SourcePath string
	MemberName string
}

// Disposition is the aggregation verdict for a completed batch.
type Disposition struct {
	Kind Kind

	// OutputPath and SuggestedName are set for KindSingle. SuggestedName is
	// the original source path with the transformed output's extension;
	// callers placing the file in a directory keep only its base name.
	OutputPath    string
	SuggestedName string

	// Pairs is set for KindArchive, in batch submission order.
	Pairs []Pair
}

// Aggregate decides the disposition for a completed batch. It is a pure
// function of the batch and success map: re-running it on the same inputs
// yields an identical result, independent of the order items completed in.
func Aggregate(b *batch.Batch, successes map[string]batch.Outcome) Disposition {
	if len(successes) == 0 {
		return Disposition{Kind: KindEmpty}
	}

	type entry struct {
		item    *batch.Item
		outcome batch.Outcome
	}
	ordered := make([]entry, 0, len(successes))
	for _, item := range b.Items() {
		outcome, ok := successes[item.ID]
		if !ok {
			continue
		}
		ordered = append(ordered, entry{item: item, outcome: outcome})
	}

	// A single success is only delivered as a plain file save when the user
	// dropped exactly that file. One success expanded out of a directory drop
	// still goes through the archive path so the folder context survives.
	if len(ordered) == 1 && len(b.Roots) == 1 &&
		normalize(b.Roots[0]) == normalize(ordered[0].item.SourcePath) {
		out := ordered[0].outcome
		name := replaceExt(normalize(ordered[0].item.SourcePath), out.OutputPath)
		return Disposition{
			Kind:          KindSingle,
			OutputPath:    out.OutputPath,
			SuggestedName: name,
		}
	}

	used := make(map[string]struct{}, len(ordered))
	pairs := make([]Pair, 0, len(ordered))
	for _, e := range ordered {
		member := relativize(e.item.SourcePath, b.Roots)
		member = replaceExt(member, e.outcome.OutputPath)
		member = disambiguate(member, used)
		used[member] = struct{}{}
		pairs = append(pairs, Pair{SourcePath: e.outcome.OutputPath, MemberName: member})
	}
	return Disposition{Kind: KindArchive, Pairs: pairs}
}

// relativize computes the archive member name for a source path against the
// batch's drop roots. A path equal to its root keeps its base name; a path
// under a directory root keeps the root's own directory name plus the
// relative remainder, so a dropped folder's internal layout survives inside
// the archive. Paths matching no root fall back to their base name.
func relativize(sourcePath string, roots []string) string {
	p := normalize(sourcePath)

	// Prefer the longest matching root so nested drops resolve against the
	// most specific one.
	best := ""
	for _, root := range roots {
		r := strings.TrimSuffix(normalize(root), "/")
		if r == "" {
			continue
		}
		if p != r && !strings.HasPrefix(p, r+"/") {
			continue
		}
		if len(r) > len(best) {
			best = r
		}
	}

	switch {
	case best == "":
		return path.Base(p)
	case p == best:
		return path.Base(p)
	default:
		if idx := strings.LastIndex(best, "/"); idx >= 0 {
			return p[idx+1:]
		}
		return p
	}
}

// replaceExt swaps member's extension for the transformed output's actual
// extension, preserving the stem. Formats can change during optimization, so
// the member name must follow the bytes that actually get archived.
func replaceExt(member, outputPath string) string {
	outExt := path.Ext(normalize(outputPath))
	if outExt == "" {
		return member
	}
	return strings.TrimSuffix(member, path.Ext(member)) + outExt
}

// disambiguate resolves member-name collisions with a " (N)" counter suffix,
// matching the naming users see from file managers.
func disambiguate(member string, used map[string]struct{}) string {
	if _, taken := used[member]; !taken {
		return member
	}
	ext := path.Ext(member)
	stem := strings.TrimSuffix(member, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, counter, ext)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

// normalize converts both separator styles to the forward-slash form required
// by the archive format before any suffix computation happens.
func normalize(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
