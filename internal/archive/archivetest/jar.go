// Package archivetest writes JAR files for tests.
package archivetest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteJar creates dir/name with the given entries, written in name order.
// A nil value creates a directory entry.
func WriteJar(t testing.TB, dir, name string, entries map[string][]byte) string {
	t.Helper()

	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create jar: %v", err)
	}
	defer f.Close()

	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, n := range names {
		data := entries[n]
		if data == nil {
			if _, err := zw.Create(n + "/"); err != nil {
				t.Fatalf("add dir %s: %v", n, err)
			}
			continue
		}
		w, err := zw.Create(n)
		if err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
	return p
}
