package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphpush/internal/ir"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "Resource", s.ResourceLabel)
	assert.Equal(t, "uri", s.IdentityProperty)
	assert.Equal(t, ir.RDFType, s.TypePredicate)
	assert.NoError(t, s.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Schema)
		field  string
	}{
		{"label with space", func(s *Schema) { s.ResourceLabel = "Rdf Resource" }, "resource_label"},
		{"empty identity", func(s *Schema) { s.IdentityProperty = "" }, "identity_property"},
		{"identity with backtick", func(s *Schema) { s.IdentityProperty = "u`ri" }, "identity_property"},
		{"no type predicate", func(s *Schema) { s.TypePredicate = "" }, "type_predicate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.mutate(&s)

			err := s.Validate()

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestIsTypePredicate(t *testing.T) {
	s := Default()
	assert.True(t, s.IsTypePredicate(ir.NewURI(ir.RDFType)))
	assert.False(t, s.IsTypePredicate(ir.NewURI("http://ex/type")))
	assert.False(t, s.IsTypePredicate(ir.NewLiteral(ir.RDFType)))
}

func TestParseCUE_Overrides(t *testing.T) {
	src := `
schema: {
	resource_label:    "Entity"
	identity_property: "iri"
}
`
	s, err := ParseCUE([]byte(src), "schema.cue")
	require.NoError(t, err)

	assert.Equal(t, "Entity", s.ResourceLabel)
	assert.Equal(t, "iri", s.IdentityProperty)
	assert.Equal(t, ir.RDFType, s.TypePredicate, "omitted field takes its default")
}

func TestParseCUE_AllDefaults(t *testing.T) {
	s, err := ParseCUE([]byte(`schema: {}`), "schema.cue")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestParseCUE_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing schema struct", `other: 1`},
		{"invalid label", `schema: resource_label: "has space"`},
		{"syntax error", `schema: {`},
		{"wrong type", `schema: identity_property: 5`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCUE([]byte(tc.src), "bad.cue")
			assert.Error(t, err)
		})
	}
}

func TestLoadCUE(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.cue")
	require.NoError(t, os.WriteFile(path, []byte(`schema: resource_label: "Node"`), 0o644))

	s, err := LoadCUE(path)
	require.NoError(t, err)
	assert.Equal(t, "Node", s.ResourceLabel)

	_, err = LoadCUE(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
