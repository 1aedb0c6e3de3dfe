package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "sweep", "report", "create-user", "create-category"} {
		assert.True(t, names[want], "missing %s", want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("migrations"))
}

func TestCreateUser_RequiresFlags(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"create-user", "--name", "Rita"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestReportReference(t *testing.T) {
	current := time.Date(2024, 5, 7, 15, 30, 0, 0, time.UTC)

	ref, err := reportReference("", current)
	require.NoError(t, err)
	assert.Equal(t, current, ref)

	ref, err = reportReference("2024-05-01", current)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), ref)

	_, err = reportReference("05/01/2024", current)
	assert.Error(t, err)
}

func TestCreateCategoryOptions_Input(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fields.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name":"asset_tag","label":"Asset tag","type":"text","required":true},
		{"name":"site","label":"Site","type":"select","options":["HQ","Remote"]}
	]`), 0o600))

	opts := &CreateCategoryOptions{Name: "Hardware", FirstResponseHours: 2, ResolutionHours: 16, FieldsFile: path}
	input, err := opts.input()
	require.NoError(t, err)
	assert.Equal(t, "Hardware", input.Name)
	assert.Equal(t, domain.SLAPolicy{FirstResponseHours: 2, ResolutionHours: 16}, input.SLA)
	require.Len(t, input.AdditionalFields, 2)
	assert.True(t, input.AdditionalFields[0].Required)
	assert.Equal(t, []string{"HQ", "Remote"}, input.AdditionalFields[1].Options)

	fields, err := loadFieldDefinitions("")
	require.NoError(t, err)
	assert.Nil(t, fields)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"name":`), 0o600))
	_, err = loadFieldDefinitions(bad)
	assert.Error(t, err)
}
