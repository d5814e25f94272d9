// Package archive writes the delivery zip for a finished batch. Entries are
// stored uncompressed: every member is an already-optimized image, so deflate
// would burn CPU for no gain.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"pixpress/internal/aggregate"
)

// WriteZip creates a zip at destPath containing every pair's source file under
// its member name. Member names are expected to be unique and forward-slashed
// already; a duplicate here is a defect upstream and fails the write.
func WriteZip(destPath string, pairs []aggregate.Pair) (err error) {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(destPath)
		}
	}()

	zw := zip.NewWriter(out)
	seen := make(map[string]struct{}, len(pairs))
	for _, pair := range pairs {
		if _, dup := seen[pair.MemberName]; dup {
			return fmt.Errorf("duplicate archive member %q", pair.MemberName)
		}
		seen[pair.MemberName] = struct{}{}
		if err := addMember(zw, pair); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

func addMember(zw *zip.Writer, pair aggregate.Pair) error {
	in, err := os.Open(pair.SourcePath)
	if err != nil {
		return fmt.Errorf("open member source: %w", err)
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   pair.MemberName,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("add member %q: %w", pair.MemberName, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write member %q: %w", pair.MemberName, err)
	}
	return nil
}
