package models

// ConflictResult describes one pass of the conflict resolver
type ConflictResult struct {
	// BaseName is the name the pass was run for
	BaseName string

	// Folder is the quarantine folder, empty when nothing collided
	Folder string

	// Moved lists the colliding artifacts, as paths inside Folder
	Moved []string
}

// Detected reports whether any colliding artifact was quarantined
func (c ConflictResult) Detected() bool {
	return len(c.Moved) > 0
}

// ReconcileResult describes one pairing pass over a directory triple
type ReconcileResult struct {
	Dir DirectoryTriple `json:"dir"`

	// Paired is the number of base names present in both folders
	Paired int `json:"paired"`

	// Moved lists files relocated into the quarantine folder
	Moved []RelocatedFile `json:"moved,omitempty"`

	// Failures lists files that could not be relocated
	Failures []RelocationFailure `json:"failures,omitempty"`
}

// RelocatedFile records a single successful move
type RelocatedFile struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RelocationFailure records a move that failed during reconciliation
type RelocationFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}
