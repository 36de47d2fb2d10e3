package models

import (
	"fmt"
	"time"
)

// OutcomeStatus is the overall result of processing one item
type OutcomeStatus string

const (
	// OutcomeSuccess means no irrecoverable step occurred. Warnings may
	// still be present in the message log.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeError means at least one irrecoverable step occurred
	OutcomeError OutcomeStatus = "error"
)

// Severity tags a single outcome message
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is one line of an item's audit trail
type Message struct {
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
}

// Outcome is the result of running one item processor
type Outcome struct {
	File     string        `json:"file"`
	Kind     MediaKind     `json:"kind"`
	Status   OutcomeStatus `json:"status"`
	Messages []Message     `json:"messages"`

	OriginalSize   int64         `json:"original_size"`
	FinalSize      int64         `json:"final_size,omitempty"`
	KeptOriginal   bool          `json:"kept_original,omitempty"`
	BackedUp       bool          `json:"backed_up,omitempty"`
	ConflictFolder string        `json:"conflict_folder,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Failed reports whether the outcome carries an Error status
func (o Outcome) Failed() bool {
	return o.Status == OutcomeError
}

// OutcomeBuilder accumulates messages for one item in chronological
// order. It is owned by a single processor invocation and is not safe
// for concurrent use.
type OutcomeBuilder struct {
	outcome Outcome
	start   time.Time
	now     func() time.Time
}

// NewOutcomeBuilder starts an outcome for item
func NewOutcomeBuilder(item MediaItem) *OutcomeBuilder {
	b := &OutcomeBuilder{now: time.Now}
	b.start = b.now()
	b.outcome = Outcome{
		File:         item.SourcePath,
		Kind:         item.Kind,
		Status:       OutcomeSuccess,
		OriginalSize: item.Size,
	}
	return b
}

func (b *OutcomeBuilder) add(sev Severity, format string, args ...interface{}) {
	b.outcome.Messages = append(b.outcome.Messages, Message{
		Severity: sev,
		Text:     fmt.Sprintf(format, args...),
		Time:     b.now(),
	})
}

// Debugf records a debug message
func (b *OutcomeBuilder) Debugf(format string, args ...interface{}) {
	b.add(SeverityDebug, format, args...)
}

// Infof records an informational message
func (b *OutcomeBuilder) Infof(format string, args ...interface{}) {
	b.add(SeverityInfo, format, args...)
}

// Warnf records a degraded-success warning. The status is unchanged.
func (b *OutcomeBuilder) Warnf(format string, args ...interface{}) {
	b.add(SeverityWarning, format, args...)
}

// Errorf records an error and marks the outcome as failed
func (b *OutcomeBuilder) Errorf(format string, args ...interface{}) {
	b.add(SeverityError, format, args...)
	b.outcome.Status = OutcomeError
}

// SetFinalSize records the size of the artifact left in the output folder
func (b *OutcomeBuilder) SetFinalSize(size int64, keptOriginal bool) {
	b.outcome.FinalSize = size
	b.outcome.KeptOriginal = keptOriginal
}

// SetOriginalSize overrides the size captured at enumeration time
func (b *OutcomeBuilder) SetOriginalSize(size int64) {
	b.outcome.OriginalSize = size
}

// SetBackedUp marks the original as relocated to the backup folder
func (b *OutcomeBuilder) SetBackedUp() {
	b.outcome.BackedUp = true
}

// SetConflictFolder records where colliding artifacts were quarantined
func (b *OutcomeBuilder) SetConflictFolder(folder string) {
	b.outcome.ConflictFolder = folder
}

// Build returns the finished outcome. The message slice is copied so
// the result does not alias the builder.
func (b *OutcomeBuilder) Build() Outcome {
	out := b.outcome
	out.Messages = append([]Message(nil), b.outcome.Messages...)
	out.Duration = b.now().Sub(b.start)
	return out
}
