package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// pngMagic is the PNG file signature; fixtures lead with it so they read as
// images to anything sniffing content. The rest is filler.
var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// WriteFile creates a fixture file of exactly size bytes, creating parent
// directories as needed. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	header := pngMagic
	if size < int64(len(header)) {
		header = header[:size]
	}
	if _, err := f.Write(header); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size - int64(len(header))
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}
