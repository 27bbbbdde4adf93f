package faq

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Library serves FAQ texts from a directory of markdown files. The
// file name without extension is the FAQ id. The directory is read on
// demand so operators can drop in new files without a restart.
type Library struct {
	dir string
}

func New(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create faq dir %s: %w", dir, err)
	}
	return &Library{dir: dir}, nil
}

// Get returns the text of the FAQ with the given id, or ok=false if no
// such FAQ exists.
func (l *Library) Get(id string) (text string, ok bool, err error) {
	if !validID(id) {
		return "", false, nil
	}
	raw, err := os.ReadFile(filepath.Join(l.dir, id+".md"))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

// IDs lists available FAQ ids starting with prefix, case-insensitive.
// Used for slash-command autocompletion.
func (l *Library) IDs(prefix string) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	prefix = strings.ToLower(prefix)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		id, found := strings.CutSuffix(name, ".md")
		if !found {
			continue
		}
		if strings.HasPrefix(strings.ToLower(id), prefix) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// validID rejects ids that could escape the FAQ directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}
