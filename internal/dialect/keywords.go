package dialect

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

//go:embed keywords/*.json
var defaultKeywords embed.FS

// KeywordsFile is the per-dialect keyword table file name.
func KeywordsFile(id string) string { return id + "Keywords.json" }

// LoadKeywords reads one keyword table per dialect from dir, or from the
// built-in tables when dir is empty. Each file is a JSON object mapping a
// dialect id to its keywords; only the entry for the file's own dialect is
// used. A dialect whose file is missing or malformed is logged and left
// without keywords; loading never fails as a whole.
func LoadKeywords(dir string, r *Registry, logger *slog.Logger) map[string][]string {
	var fsys fs.FS = defaultKeywords
	root := "keywords"
	if dir != "" {
		fsys = os.DirFS(dir)
		root = "."
	}

	table := make(map[string][]string, len(r.descriptors))
	for _, d := range r.descriptors {
		kws, err := readKeywords(fsys, filepath.ToSlash(filepath.Join(root, KeywordsFile(d.ID))), d.ID)
		if err != nil {
			if logger != nil {
				logger.Warn("keywords_load_failed",
					"code", d.ID,
					"dir", dir,
					"error", err,
					"fallback", "extension_only",
				)
			}
			continue
		}
		table[d.ID] = kws
	}
	return table
}

func readKeywords(fsys fs.FS, name, id string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var obj map[string][]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	kws, ok := obj[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errNoEntry)
	}
	return kws, nil
}

var errNoEntry = errors.New("no entry for dialect")
