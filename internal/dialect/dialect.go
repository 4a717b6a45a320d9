// Package dialect describes the simulation input-file dialects simrun knows
// about and detects which one a document belongs to.
package dialect

import (
	"strings"
)

// Descriptor is the static description of one dialect.
type Descriptor struct {
	ID          string
	DisplayName string

	// Extensions are checked in order, case-sensitively, as file name suffixes.
	Extensions []string

	// Keywords are matched case-insensitively against document text when no
	// extension matched. Empty means the dialect is reachable by extension only.
	Keywords []string

	// DocsFile is the documentation table file name under the docs directory.
	DocsFile string
}

// ExecutableKey is the settings key holding the executable path.
func (d Descriptor) ExecutableKey() string { return d.ID + ".executablePath" }

// RunCommand is the command name bound to starting this dialect's executable.
func (d Descriptor) RunCommand() string { return d.ID + ".run" }

// TerminateCommand is the command name bound to killing the running process.
func (d Descriptor) TerminateCommand() string { return d.ID + ".terminate" }

// Registry is an ordered, immutable set of descriptors. Declaration order is
// the tie-break for both extension and keyword detection.
type Registry struct {
	descriptors []Descriptor
}

// NewRegistry copies descs into a new registry.
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{descriptors: make([]Descriptor, len(descs))}
	for i, d := range descs {
		r.descriptors[i] = d.clone()
	}
	return r
}

// clone returns d with its own copies of the slice fields.
func (d Descriptor) clone() Descriptor {
	d.Extensions = append([]string(nil), d.Extensions...)
	d.Keywords = append([]string(nil), d.Keywords...)
	return d
}

// Default returns the built-in FRAPCON, FRAPTRAN and SERPENT descriptors
// without keywords. Keywords are attached with WithKeywords.
func Default() *Registry {
	return NewRegistry(
		Descriptor{
			ID:          "frapcon",
			DisplayName: "FRAPCON",
			Extensions:  []string{".frpcon", ".inp"},
			DocsFile:    "frapconDocs.json",
		},
		Descriptor{
			ID:          "fraptran",
			DisplayName: "FRAPTRAN",
			Extensions:  []string{".ftn"},
			DocsFile:    "fraptranDocs.json",
		},
		Descriptor{
			ID:          "serpent",
			DisplayName: "SERPENT",
			Extensions:  []string{".inp"},
			DocsFile:    "serpentDocs.json",
		},
	)
}

// WithKeywords returns a copy of r whose keyword sets come from table.
// Dialects missing from table end up with no keywords.
func (r *Registry) WithKeywords(table map[string][]string) *Registry {
	descs := r.All()
	for i := range descs {
		descs[i].Keywords = table[descs[i].ID]
	}
	return NewRegistry(descs...)
}

// All returns the descriptors in declaration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	for i, d := range r.descriptors {
		out[i] = d.clone()
	}
	return out
}

// IDs returns the dialect ids in declaration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		ids[i] = d.ID
	}
	return ids
}

// Lookup finds a descriptor by id.
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.ID == id {
			return d.clone(), true
		}
	}
	return Descriptor{}, false
}

// ByCommand finds the descriptor owning a run or terminate command name and
// reports which of the two it is.
func (r *Registry) ByCommand(command string) (d Descriptor, terminate bool, ok bool) {
	for _, d := range r.descriptors {
		switch command {
		case d.RunCommand():
			return d.clone(), false, true
		case d.TerminateCommand():
			return d.clone(), true, true
		}
	}
	return Descriptor{}, false, false
}

// Commands lists every run and terminate command name.
func (r *Registry) Commands() []string {
	cmds := make([]string, 0, 2*len(r.descriptors))
	for _, d := range r.descriptors {
		cmds = append(cmds, d.RunCommand(), d.TerminateCommand())
	}
	return cmds
}

// Detect returns the dialect of a document from its file name and content.
//
// An extension match wins outright. Otherwise the lower-cased text is scanned
// for each descriptor's keywords in declaration order and the first
// descriptor with any hit wins. Overlapping keyword sets are resolved purely
// by that order.
func (r *Registry) Detect(name, text string) (string, bool) {
	for _, d := range r.descriptors {
		for _, ext := range d.Extensions {
			if ext != "" && strings.HasSuffix(name, ext) {
				return d.ID, true
			}
		}
	}

	lower := strings.ToLower(text)
	for _, d := range r.descriptors {
		for _, kw := range d.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				return d.ID, true
			}
		}
	}
	return "", false
}
