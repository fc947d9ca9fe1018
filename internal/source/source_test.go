package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonTasks = `[
  {"id": "a", "name": "Design", "start_date": "2026-03-01", "duration_days": 10, "assigned_resources": ["Crane-1"]},
  {"id": "b", "predecessor_ids": ["a"], "duration_days": 10, "lag_days": 2, "baseline_start": "2026-03-11"}
]`

const yamlTasks = `
tasks:
  - id: c
    project_id: beta
    start_date: 2026-04-01
    end_date: "2026-04-03"
    duration_days: 2
    status: cancelled
  - id: d
    predecessor_ids: [c]
    duration_days: 1
    baseline_end: null
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.json", jsonTasks)

	tasks, err := LoadFile(path, "")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Design", tasks[0].Name)
	assert.Equal(t, "2026-03-01", tasks[0].StartDate.String())
	assert.True(t, tasks[0].EndDate.IsZero())
	assert.Equal(t, []string{"Crane-1"}, tasks[0].AssignedResources)
	assert.Equal(t, []string{"a"}, tasks[1].PredecessorIDs)
	assert.Equal(t, 2, tasks[1].LagDays)
	require.NotNil(t, tasks[1].BaselineStart)
	assert.Equal(t, "2026-03-11", tasks[1].BaselineStart.String())
	assert.Nil(t, tasks[1].BaselineEnd)
}

func TestLoadFile_JSONObjectAndPath(t *testing.T) {
	dir := t.TempDir()
	wrapped := writeFile(t, dir, "wrapped.json", `{"tasks": `+jsonTasks+`}`)
	nested := writeFile(t, dir, "nested.json", `{"data": {"project": {"items": `+jsonTasks+`}}}`)

	tasks, err := LoadFile(wrapped, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = LoadFile(nested, "data.project.items")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	_, err = LoadFile(nested, "data.missing")
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = LoadFile(nested, "")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.yml", yamlTasks)

	tasks, err := LoadFile(path, "")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "beta", tasks[0].ProjectID)
	assert.Equal(t, "2026-04-01", tasks[0].StartDate.String())
	assert.Equal(t, "2026-04-03", tasks[0].EndDate.String())
	assert.True(t, tasks[0].Status.Cancelled())
	assert.Equal(t, []string{"c"}, tasks[1].PredecessorIDs)
	assert.Nil(t, tasks[1].BaselineEnd)
}

func TestLoadFile_YAMLList(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.yaml", "- id: x\n  duration_days: 3\n")

	tasks, err := LoadFile(path, "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 3, tasks[0].DurationDays)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(writeFile(t, dir, "plan.txt", "id,name"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(writeFile(t, dir, "bad.json", `[{"id": `), "")
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, dir, "baddate.json", `[{"id": "a", "start_date": "March 1st"}]`), "")
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"), "")
	assert.Error(t, err)
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", "[]")
	writeFile(t, dir, "nested/deep/b.yaml", "[]")
	writeFile(t, dir, "nested/notes.md", "ignored")

	files, err := Expand([]string{
		filepath.Join(dir, "**", "*"),
		filepath.Join(dir, "a.json"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "nested", "deep", "b.yaml"),
	}, files)

	files, err = Expand([]string{filepath.Join(dir, "*.yaml")})
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = Expand([]string{filepath.Join(dir, "nope.json")})
	assert.Error(t, err)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1-alpha.json", jsonTasks)
	writeFile(t, dir, "2-beta.yaml", yamlTasks)

	tasks, err := LoadFiles([]string{filepath.Join(dir, "*.{json,yaml}")}, FileOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "c", tasks[2].ID)

	_, err = LoadFiles([]string{filepath.Join(dir, "*.toml")}, FileOptions{})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestLoadFiles_Stdin(t *testing.T) {
	tasks, err := LoadFiles([]string{Stdin}, FileOptions{
		Stdin:    strings.NewReader(`{"result": {"rows": ` + jsonTasks + `}}`),
		JSONPath: "result.rows",
	})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestDecode_Empty(t *testing.T) {
	tasks, err := Decode(strings.NewReader("  "), FormatJSON, "")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = Decode(strings.NewReader("[]"), Format("csv"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
