package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// definition constrains schema files and supplies defaults for omitted fields.
const definition = `
#Schema: {
	resource_label:    *"Resource" | =~"^[A-Za-z_][A-Za-z0-9_]*$"
	identity_property: *"uri" | =~"^[A-Za-z_][A-Za-z0-9_]*$"
	type_predicate:    *"http://www.w3.org/1999/02/22-rdf-syntax-ns#type" | (string & !="")
}
`

// ConfigError reports an invalid schema configuration, with the CUE source
// position when one is known.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadCUE reads a schema from a CUE file. The file declares a top-level
// "schema" struct; omitted fields take their defaults:
//
//	schema: {
//		resource_label:    "Resource"
//		identity_property: "uri"
//	}
func LoadCUE(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema file: %w", err)
	}
	return ParseCUE(data, path)
}

// ParseCUE parses schema CUE source. filename is used in error positions.
func ParseCUE(src []byte, filename string) (Schema, error) {
	ctx := cuecontext.New()

	defs := ctx.CompileString(definition, cue.Filename("schema-definition.cue"))
	if err := defs.Err(); err != nil {
		return Schema{}, formatCUEError(err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Schema{}, formatCUEError(err)
	}

	v := file.LookupPath(cue.ParsePath("schema"))
	if !v.Exists() {
		return Schema{}, &ConfigError{Field: "schema", Message: "schema struct is required", Pos: file.Pos()}
	}

	unified := defs.LookupPath(cue.ParsePath("#Schema")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Schema{}, formatCUEError(err)
	}

	s := Schema{}
	fields := []struct {
		name string
		dst  *string
	}{
		{"resource_label", &s.ResourceLabel},
		{"identity_property", &s.IdentityProperty},
		{"type_predicate", &s.TypePredicate},
	}
	for _, f := range fields {
		fv := unified.LookupPath(cue.ParsePath(f.name))
		if d, ok := fv.Default(); ok {
			fv = d
		}
		str, err := fv.String()
		if err != nil {
			return Schema{}, &ConfigError{Field: f.name, Message: err.Error(), Pos: fv.Pos()}
		}
		*f.dst = str
	}

	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &ConfigError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
