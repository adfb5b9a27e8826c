package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/graphpush/internal/cypher"
	"github.com/roach88/graphpush/internal/harness"
	"github.com/roach88/graphpush/internal/pushdown"
	"github.com/roach88/graphpush/internal/schema"
)

// LoadError represents an error that occurred while loading an input file.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// loadSchema reads the storage schema named by --schema, or returns the
// default layout when none is given.
func loadSchema(path string) (schema.Schema, error) {
	if path == "" {
		return schema.Default(), nil
	}
	s, err := schema.LoadCUE(path)
	if err != nil {
		return schema.Schema{}, &LoadError{Code: ErrCodeSchemaFile, Path: path, Message: err.Error()}
	}
	return s, nil
}

// newCompiler builds a compiler for the configured schema, logging to w.
func newCompiler(opts *RootOptions, w io.Writer) (*cypher.Compiler, error) {
	s, err := loadSchema(opts.Schema)
	if err != nil {
		return nil, err
	}
	c, err := cypher.New(cypher.WithSchema(s), cypher.WithLogger(opts.logger(w)))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeSchemaFile, Path: opts.Schema, Message: err.Error()}
	}
	return c, nil
}

// loadRequest reads a YAML query file.
func loadRequest(path string) (pushdown.Request, error) {
	q, err := harness.LoadQuery(path)
	if err != nil {
		return pushdown.Request{}, &LoadError{Code: ErrCodeQueryFile, Path: path, Message: err.Error()}
	}
	req, err := q.Request()
	if err != nil {
		return pushdown.Request{}, &LoadError{Code: ErrCodeQueryFile, Path: path, Message: err.Error()}
	}
	return req, nil
}

// expandQueryFiles resolves arguments to query files. Directories expand to
// the YAML files they contain (non-recursively, sorted).
func expandQueryFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: arg, Message: "path not found"}
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		var found []string
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			found = append(found, matches...)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
