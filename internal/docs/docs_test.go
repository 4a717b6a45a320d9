package docs

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/randomizedcoder/simrun/internal/dialect"
	"github.com/randomizedcoder/simrun/internal/logging"
)

func TestCompletions(t *testing.T) {
	table := NewTable([]Entry{
		{Name: "im", Required: true, InputBlock: "$frpcn", Description: "time steps"},
		{Name: "nr"},
	})

	items := table.Completions()
	if len(items) != 2 {
		t.Fatalf("len = %d", len(items))
	}

	req := items[0]
	if req.Kind != KindEnumMember || req.Description != "Required 🔴" {
		t.Errorf("required item = %+v", req)
	}
	if req.InsertText != "im = ," || !req.Snippet {
		t.Errorf("required insert = %q snippet=%v", req.InsertText, req.Snippet)
	}
	if req.Detail != "$frpcn" {
		t.Errorf("detail = %q", req.Detail)
	}
	if req.Documentation != "**im**\n\ntime steps" {
		t.Errorf("documentation = %q", req.Documentation)
	}

	opt := items[1]
	if opt.Kind != KindVariable || opt.Description != "Optional" {
		t.Errorf("optional item = %+v", opt)
	}
	if opt.InsertText != "nr = " || opt.Snippet {
		t.Errorf("optional insert = %q snippet=%v", opt.InsertText, opt.Snippet)
	}
	if opt.Detail != "" || opt.Documentation != "**nr**\n\n" {
		t.Errorf("optional detail/doc = %q / %q", opt.Detail, opt.Documentation)
	}
}

func TestHover(t *testing.T) {
	table := NewTable([]Entry{{Name: "ProblemTime", Description: "days"}})

	md, ok := table.Hover("ProblemTime")
	if !ok || md != "**ProblemTime**\n\ndays" {
		t.Errorf("Hover = %q, %v", md, ok)
	}
	if _, ok := table.Hover("problemtime"); ok {
		t.Error("hover lookup is case sensitive")
	}
}

func TestWordAt(t *testing.T) {
	text := " $frpcn\r\n  qmpy = 6.0, tw = 580\nset pop 1000"

	testCases := []struct {
		line, char int
		want       string
		ok         bool
	}{
		{0, 1, "$frpcn", true},
		{0, 7, "$frpcn", true},
		{0, 0, "", false},
		{1, 4, "qmpy", true},
		{1, 6, "qmpy", true},
		{1, 7, "", false},
		{1, 15, "tw", true},
		{2, 5, "pop", true},
		{3, 0, "", false},
		{-1, 0, "", false},
	}
	for _, tc := range testCases {
		got, ok := WordAt(text, tc.line, tc.char)
		if got != tc.want || ok != tc.ok {
			t.Errorf("WordAt(%d,%d) = %q,%v; want %q,%v", tc.line, tc.char, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWordAt_UTF16(t *testing.T) {
	testCases := []struct {
		name string
		text string
		char int
		want string
	}{
		{"two byte rune", "é  bcd", 3, "bcd"},
		{"three byte rune", "€ tw = 1", 2, "tw"},
		{"surrogate pair", "😀 pop", 3, "pop"},
		{"end of word", "é  bcd", 6, "bcd"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := WordAt(tc.text, 0, tc.char)
			if !ok || got != tc.want {
				t.Errorf("WordAt(%q, 0, %d) = %q,%v; want %q", tc.text, tc.char, got, ok, tc.want)
			}
		})
	}

	if got, ok := WordAt("é  bcd", 0, 7); ok {
		t.Errorf("WordAt past end = %q, want no word", got)
	}
}

func TestLoadTable(t *testing.T) {
	fsys := fstest.MapFS{
		"good.json": {Data: []byte(`[{"name":"pop","required":true,"inputBlock":"set"}]`)},
		"bad.json":  {Data: []byte(`{"name":`)},
	}

	table, err := LoadTable(fsys, "good.json")
	if err != nil || table.Len() != 1 {
		t.Fatalf("good: %v, len %d", err, table.Len())
	}
	if e, _ := table.Lookup("pop"); !e.Required || e.InputBlock != "set" {
		t.Errorf("entry = %+v", e)
	}

	table, err = LoadTable(fsys, "missing.json")
	if err != nil || table.Len() != 0 {
		t.Errorf("missing file: %v, len %d", err, table.Len())
	}

	if _, err := LoadTable(fsys, "bad.json"); err == nil {
		t.Error("malformed table should fail")
	}
}

func TestLoadAll_Embedded(t *testing.T) {
	tables := LoadAll("", dialect.Default(), nil)
	for _, id := range dialect.Default().IDs() {
		if tables[id] == nil || tables[id].Len() == 0 {
			t.Errorf("no embedded docs for %s", id)
		}
	}
	if _, ok := tables["serpent"].Hover("acelib"); !ok {
		t.Error("serpent docs should document acelib")
	}
}

func TestLoadAll_Directory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "frapconDocs.json"), []byte(`[{"name":"im"}]`), 0o644)
	os.WriteFile(filepath.Join(dir, "serpentDocs.json"), []byte(`nope`), 0o644)

	var buf bytes.Buffer
	tables := LoadAll(dir, dialect.Default(), logging.NewLoggerWithWriter(&buf, "text", "info"))

	if tables["frapcon"].Len() != 1 {
		t.Errorf("frapcon len = %d", tables["frapcon"].Len())
	}
	if tables["fraptran"].Len() != 0 {
		t.Error("absent fraptran table should be empty")
	}
	if tables["serpent"].Len() != 0 {
		t.Error("malformed serpent table should degrade to empty")
	}
	if !strings.Contains(buf.String(), "docs_load_failed") {
		t.Errorf("expected a warning: %s", buf.String())
	}
}
