// Package docs loads the per-dialect documentation tables and turns them
// into completion items and hover text.
package docs

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/randomizedcoder/simrun/internal/dialect"
)

//go:embed tables/*.json
var defaultTables embed.FS

// Entry documents one input variable or card.
type Entry struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	InputBlock  string `json:"inputBlock,omitempty"`
	Description string `json:"description,omitempty"`
}

// Table is the documentation of one dialect, in file order. A nil *Table
// behaves as an empty one.
type Table struct {
	entries []Entry
}

// NewTable builds a table from entries.
func NewTable(entries []Entry) *Table {
	return &Table{entries: append([]Entry(nil), entries...)}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the entries.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return append([]Entry(nil), t.entries...)
}

// Lookup finds an entry by exact, case-sensitive name.
func (t *Table) Lookup(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	for _, e := range t.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// LoadTable reads file from fsys. A missing file yields an empty table.
func LoadTable(fsys fs.FS, file string) (*Table, error) {
	data, err := fs.ReadFile(fsys, file)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(nil), nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return NewTable(entries), nil
}

// LoadAll loads the table of every dialect in r from dir, or from the
// built-in tables when dir is empty. Unreadable tables are logged and
// replaced by empty ones.
func LoadAll(dir string, r *dialect.Registry, logger *slog.Logger) map[string]*Table {
	var fsys fs.FS
	var root string
	if dir == "" {
		fsys, root = defaultTables, "tables"
	} else {
		fsys, root = os.DirFS(dir), "."
	}

	tables := make(map[string]*Table)
	for _, d := range r.All() {
		t, err := LoadTable(fsys, path.Join(root, d.DocsFile))
		if err != nil {
			if logger != nil {
				logger.Warn("docs_load_failed", "code", d.ID, "file", d.DocsFile, "error", err)
			}
			t = NewTable(nil)
		}
		if logger != nil {
			logger.Debug("docs_loaded", "code", d.ID, "entries", t.Len())
		}
		tables[d.ID] = t
	}
	return tables
}

// CompletionKind classifies completion items.
type CompletionKind int

const (
	// KindVariable marks an optional input.
	KindVariable CompletionKind = iota
	// KindEnumMember marks a required input.
	KindEnumMember
)

// CompletionTriggers are the characters that should open completion.
var CompletionTriggers = []string{" ", "$"}

// CompletionItem is an editor-neutral completion proposal.
type CompletionItem struct {
	Label         string
	Kind          CompletionKind
	Description   string
	Detail        string
	Documentation string // markdown
	InsertText    string
	Snippet       bool
}

// Completions returns one item per entry, in table order.
func (t *Table) Completions() []CompletionItem {
	if t == nil {
		return nil
	}
	items := make([]CompletionItem, 0, len(t.entries))
	for _, e := range t.entries {
		item := CompletionItem{
			Label:         e.Name,
			Kind:          KindVariable,
			Description:   "Optional",
			Detail:        e.InputBlock,
			Documentation: markdown(e),
			InsertText:    e.Name + " = ",
		}
		if e.Required {
			item.Kind = KindEnumMember
			item.Description = "Required 🔴"
			item.InsertText = e.Name + " = ,"
			item.Snippet = true
		}
		items = append(items, item)
	}
	return items
}

// Hover returns the markdown documentation for word.
func (t *Table) Hover(word string) (string, bool) {
	e, ok := t.Lookup(word)
	if !ok {
		return "", false
	}
	return markdown(e), true
}

func markdown(e Entry) string {
	return fmt.Sprintf("**%s**\n\n%s", e.Name, e.Description)
}

var wordPattern = regexp.MustCompile(`[\w$]+`)

// WordAt returns the word touching the zero-based line and character
// offset, the way editors resolve the word under the cursor: a position
// just after the last character still belongs to the word. character
// counts UTF-16 code units, as LSP positions do.
func WordAt(text string, line, character int) (string, bool) {
	if line < 0 || character < 0 {
		return "", false
	}
	lines := strings.Split(text, "\n")
	if line >= len(lines) {
		return "", false
	}
	l := strings.TrimSuffix(lines[line], "\r")
	character = byteOffset(l, character)
	for _, loc := range wordPattern.FindAllStringIndex(l, -1) {
		if character >= loc[0] && character <= loc[1] {
			return l[loc[0]:loc[1]], true
		}
	}
	return "", false
}

// byteOffset converts a UTF-16 offset within line to a byte offset. Offsets
// past the end, or inside a surrogate pair, round up to the next rune.
func byteOffset(line string, units int) int {
	n := 0
	for i, r := range line {
		if n >= units {
			return i
		}
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		n += w
	}
	return len(line) + units - n
}
