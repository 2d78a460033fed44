// Package storage is the file-system abstraction behind import and export.
package storage

import "time"

// File describes one file under the storage root.
type File struct {
	// Path is slash separated and relative to the root.
	Path     string
	Checksum string
	Size     int64
	ModTime  time.Time
}

// Provider is the interface for transfer directory file operations.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Glob returns the regular files matching a doublestar pattern
	// relative to the root, such as "**/*.yaml".
	Glob(pattern string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Rel maps an absolute path under the root to a Provider path.
	Rel(abs string) (string, error)
}
