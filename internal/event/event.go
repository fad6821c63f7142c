package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	RunStarted       Type = iota + 1
	GenerationOpened      // working snapshot directory created
	SourceStarted
	DirCreated
	FileCopied
	FileLinked
	FileSkipped // non-regular entry or excluded name
	FileFailed
	TimestampSuspect // mtime comparison inconclusive, copied instead
	VerifyStarted
	VerifyOK
	VerifyFailed
	RunComplete
)

var typeNames = [...]string{
	RunStarted:       "RunStarted",
	GenerationOpened: "GenerationOpened",
	SourceStarted:    "SourceStarted",
	DirCreated:       "DirCreated",
	FileCopied:       "FileCopied",
	FileLinked:       "FileLinked",
	FileSkipped:      "FileSkipped",
	FileFailed:       "FileFailed",
	TimestampSuspect: "TimestampSuspect",
	VerifyStarted:    "VerifyStarted",
	VerifyOK:         "VerifyOK",
	VerifyFailed:     "VerifyFailed",
	RunComplete:      "RunComplete",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // relative to the source root (or generation name for run events)
	Size      int64  // file size in bytes
	Error     error
}
