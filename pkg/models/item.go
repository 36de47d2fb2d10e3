package models

import (
	"path/filepath"
	"strings"
)

// MediaKind classifies an input file by extension
type MediaKind string

const (
	// KindImage is re-encoded with the image encoder
	KindImage MediaKind = "image"
	// KindVideo is re-encoded with the video encoder
	KindVideo MediaKind = "video"
	// KindUnrecognized is dropped from the batch without being reported
	KindUnrecognized MediaKind = "unrecognized"
)

// MediaItem is one input file under consideration.
// Items are created at enumeration time and never mutated afterwards.
type MediaItem struct {
	// SourcePath is the absolute path of the input file
	SourcePath string

	// BaseName is the filename without its extension, the join key
	// across the output, backup and quarantine folders
	BaseName string

	// Ext is the lower-cased extension, including the leading dot
	Ext string

	// Kind is the media kind derived from Ext
	Kind MediaKind

	// Size in bytes at enumeration time
	Size int64

	// Dir is the folder triple for the directory the item was found in
	Dir DirectoryTriple
}

// FileName returns the last element of SourcePath
func (m MediaItem) FileName() string {
	return filepath.Base(m.SourcePath)
}

// NewMediaItem builds an item from a path and its classification
func NewMediaItem(path string, size int64, kind MediaKind, dir DirectoryTriple) MediaItem {
	return MediaItem{
		SourcePath: path,
		BaseName:   BaseName(path),
		Ext:        strings.ToLower(filepath.Ext(path)),
		Kind:       kind,
		Size:       size,
		Dir:        dir,
	}
}

// BaseName strips the directory and the last extension from path
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
