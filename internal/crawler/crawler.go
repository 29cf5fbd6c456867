package crawler

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ArchiveExtension marks the files a crawl returns.
const ArchiveExtension = ".jar"

// Crawler scans a directory tree for Java archives.
type Crawler struct {
	ignored []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored: []string{".git", ".idea", "node_modules", "testdata"},
	}
}

// FindArchives walks root and returns every JAR below it, sorted. A root
// that is itself a file is returned as is.
func (c *Crawler) FindArchives(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign && path != root {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if path == root || strings.EqualFold(filepath.Ext(d.Name()), ArchiveExtension) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

// OutputName is the sub directory a crawled archive renders into.
func OutputName(archivePath string) string {
	base := filepath.Base(archivePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
