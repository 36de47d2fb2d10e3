package models

import (
	"path/filepath"
)

// Folder name suffixes appended to the source directory's own name
const (
	OutputSuffix     = "_compressed"
	BackupSuffix     = "_originals_backup"
	QuarantineSuffix = "_unpaired"
	ConflictSuffix   = "_conflict"
)

// DirectoryTriple holds the three folders derived from one input directory.
// Given a directory named X, they are X/X_compressed, X/X_originals_backup
// and X/X_unpaired.
type DirectoryTriple struct {
	Source     string
	Output     string
	Backup     string
	Quarantine string
}

// NewDirectoryTriple derives the folder triple for dir
func NewDirectoryTriple(dir string) DirectoryTriple {
	clean := filepath.Clean(dir)
	name := filepath.Base(clean)
	return DirectoryTriple{
		Source:     clean,
		Output:     filepath.Join(clean, name+OutputSuffix),
		Backup:     filepath.Join(clean, name+BackupSuffix),
		Quarantine: filepath.Join(clean, name+QuarantineSuffix),
	}
}

// IsDerived reports whether path is one of the triple's own folders
func (d DirectoryTriple) IsDerived(path string) bool {
	clean := filepath.Clean(path)
	return clean == d.Output || clean == d.Backup || clean == d.Quarantine
}

// ConflictFolder returns the per-name quarantine folder under Output
func (d DirectoryTriple) ConflictFolder(baseName string) string {
	return ConflictFolder(d.Output, baseName)
}

// ConflictFolder returns <outputFolder>/<baseName>_conflict
func ConflictFolder(outputFolder, baseName string) string {
	return filepath.Join(outputFolder, baseName+ConflictSuffix)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
