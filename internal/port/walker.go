package port

import "time"

// FileWalker lists the files under root that are eligible for ingest,
// sorted by path.
type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

// FileInfo describes one matched file.
type FileInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}
