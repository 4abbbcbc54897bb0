package harness

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/attest/internal/script"
)

// ImportsDirective names the metadata directive listing files to import.
const ImportsDirective = "imports"

// loadedImport is an imported file ready to execute.
type loadedImport struct {
	Name    string // as written in the directive
	Path    string // resolved against the importing file's directory
	Program script.Program
}

// importNames extracts the imports directive from metadata.
// Returns nil when the directive is absent; any value other than a list of
// strings is an *ImportsError.
func importNames(file string, meta *script.Metadata) ([]string, error) {
	raw, ok := meta.Get(ImportsDirective)
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &ImportsError{File: file, Value: raw}
	}
	names := make([]string, len(list))
	for i, item := range list {
		name, ok := item.(string)
		if !ok {
			return nil, &ImportsError{File: file, Value: raw}
		}
		names[i] = name
	}
	return names, nil
}

// resolveImport resolves an import name relative to dir.
func resolveImport(dir, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(dir, name)
}

// loadImports reads and parses every file prog imports, in declared order.
//
// Reading is harness-fatal on failure. Parsing goes through the guard, so an
// import that does not parse is recorded against its label and left out.
func (c *Context) loadImports(prog script.Program) ([]loadedImport, error) {
	var meta *script.Metadata
	if err := c.guard(labelParse(c.path), func() error {
		var merr error
		meta, merr = c.engine.CollectMetadata(prog)
		return merr
	}); err != nil {
		return nil, err
	}

	names, err := importNames(c.path, meta)
	if err != nil {
		return nil, err
	}

	dir := importDir(c.path)
	imports := make([]loadedImport, 0, len(names))
	for _, name := range names {
		path := resolveImport(dir, name)
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read import %q: %w", name, err)
		}

		var imported script.Program
		if err := c.guard(labelImport(name), func() error {
			var perr error
			imported, perr = c.engine.Parse(path, src)
			return perr
		}); err != nil {
			return nil, err
		}
		if imported == nil {
			continue
		}
		imports = append(imports, loadedImport{Name: name, Path: path, Program: imported})
	}
	return imports, nil
}
