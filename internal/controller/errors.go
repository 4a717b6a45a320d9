package controller

import "errors"

var (
	// ErrUnknownCode is returned for a code id that is not registered.
	ErrUnknownCode = errors.New("unknown simulation code")

	// ErrAlreadyRunning is returned when a run is requested while a process
	// for the same code is alive.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNoActiveDocument is returned when no document has focus.
	ErrNoActiveDocument = errors.New("no active document")

	// ErrExecutableNotSet is returned when the executable path is blank.
	ErrExecutableNotSet = errors.New("executable path not set")
)
