package internal

import "fmt"

// Pipeline stages, in the order a ROM goes through them.
const (
	StageRead       = "read"
	StageEndian     = "endian"
	StageHeader     = "header"
	StageIPL3       = "ipl3"
	StageEntrypoint = "entrypoint"
	StageClassify   = "classify"
)

// StageError is a failure to analyze one file.
type StageError struct {
	File  string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%q: %s: %v", e.File, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
