// Package status projects the active document state onto the status bar
// control: a label, a tooltip and the command the control triggers.
package status

import (
	"github.com/randomizedcoder/simrun/internal/dialect"
)

// ActiveDocumentState is derived on demand for the focused document. It is
// never cached across focus changes.
type ActiveDocumentState struct {
	Path     string
	CodeID   string // "" when no dialect was detected
	Detected bool
	Running  bool
}

// Action is what activating the control does.
type Action int

const (
	ActionNone Action = iota
	ActionRun
	ActionTerminate
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionRun:
		return "run"
	case ActionTerminate:
		return "terminate"
	default:
		return "none"
	}
}

// Item is the presentation of the status control.
type Item struct {
	Visible bool
	CodeID  string
	Name    string // dialect display name
	Label   string
	Tooltip string
	Action  Action
	Command string
}

// Project computes the status item for state. It is a pure function of its
// inputs.
func Project(state ActiveDocumentState, r *dialect.Registry) Item {
	if !state.Detected {
		return Item{}
	}
	d, ok := r.Lookup(state.CodeID)
	if !ok {
		return Item{}
	}

	if state.Running {
		return Item{
			Visible: true,
			CodeID:  d.ID,
			Name:    d.DisplayName,
			Label:   "Terminate " + d.DisplayName,
			Tooltip: "Terminate " + d.DisplayName,
			Action:  ActionTerminate,
			Command: d.TerminateCommand(),
		}
	}
	return Item{
		Visible: true,
		CodeID:  d.ID,
		Name:    d.DisplayName,
		Label:   "Run " + d.DisplayName,
		Tooltip: "Run " + d.DisplayName,
		Action:  ActionRun,
		Command: d.RunCommand(),
	}
}
