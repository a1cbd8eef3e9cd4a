// Package bulk pushes a local directory tree of script files to the remote
// service in one pass.
package bulk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/tklein/scriptpad/internal/script"
)

// PendingScript is one local file ready to be pushed.
type PendingScript struct {
	Path        string // relative to the walked root
	Name        string
	Description string
	Language    script.Language
	Body        string
}

// defaultIgnorePatterns are always skipped, gitignore or not.
var defaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"__pycache__",
	".venv",
	".idea",
	".vscode",
}

// Walk collects pushable .flux/.py files under root, honoring the root's
// .gitignore when present and applying optional manifest metadata.
func Walk(root string) ([]PendingScript, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	manifest, err := LoadManifest(absRoot)
	if err != nil {
		return nil, err
	}

	matcher := buildIgnoreMatcher(absRoot)

	var pending []PendingScript
	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Keep walking
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}

		if matcher.MatchesPath(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		lang, ok := languageForFile(relPath)
		if !ok {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", relPath, err)
		}

		p := PendingScript{
			Path:     relPath,
			Name:     strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath)),
			Language: lang,
			Body:     strings.TrimRight(string(data), " \t\r\n"),
		}
		if entry, ok := manifest.Scripts[filepath.ToSlash(relPath)]; ok {
			if entry.Name != "" {
				p.Name = entry.Name
			}
			p.Description = entry.Description
		}

		pending = append(pending, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pending, nil
}

func buildIgnoreMatcher(root string) *gitignore.GitIgnore {
	ignoreFile := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(ignoreFile); err == nil {
		if matcher, err := gitignore.CompileIgnoreFileAndLines(ignoreFile, defaultIgnorePatterns...); err == nil {
			return matcher
		}
	}
	return gitignore.CompileIgnoreLines(defaultIgnorePatterns...)
}

func languageForFile(path string) (script.Language, bool) {
	switch filepath.Ext(path) {
	case ".flux":
		return script.LangFlux, true
	case ".py":
		return script.LangPython, true
	default:
		return "", false
	}
}
