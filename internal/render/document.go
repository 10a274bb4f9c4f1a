package render

import (
	"os"
	"path/filepath"
	"strings"
)

const LanguageID = "fql"

// QueryExtensions are the file extensions recognized as query documents.
var QueryExtensions = []string{".fql", ".fqlx"}

// FileDocument reads query text from a file on every call.
type FileDocument struct {
	Path string
}

func (d FileDocument) IsQueryDocument() bool {
	if d.Path == "" {
		return false
	}
	ext := strings.ToLower(filepath.Ext(d.Path))
	for _, e := range QueryExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (d FileDocument) Text() (string, error) {
	b, err := os.ReadFile(d.Path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TextDocument is query text held in memory, e.g. from an HTTP request.
type TextDocument struct {
	Language string
	Body     string
}

func (d TextDocument) IsQueryDocument() bool { return d.Language == LanguageID }

func (d TextDocument) Text() (string, error) { return d.Body, nil }
