// Package source loads task snapshots from files and SQL databases.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/joshharrison/critpath/internal/task"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrNoInput is returned when the patterns match no files.
	ErrNoInput = errors.New("no input files matched")
	// ErrPathNotFound is returned when a JSON path selects nothing.
	ErrPathNotFound = errors.New("json path not found")
)

// Stdin is the pattern that reads a JSON document from standard input.
const Stdin = "-"

// Format is an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// FileOptions controls file loading.
type FileOptions struct {
	// JSONPath selects the task array inside JSON documents using gjson
	// syntax, e.g. "data.project.tasks". Empty means the document is the
	// array itself or an object with a "tasks" key.
	JSONPath string
	// Stdin is read when a pattern is "-". Defaults to os.Stdin.
	Stdin io.Reader
}

// Expand resolves file paths and doublestar globs into a sorted, de-duplicated
// list of files. A literal path must exist; a glob may match nothing.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		if pattern == Stdin {
			continue
		}
		if !hasMeta(pattern) {
			if _, err := os.Stat(pattern); err != nil {
				return nil, fmt.Errorf("input %s: %w", pattern, err)
			}
			add(pattern)
			continue
		}

		base, pat := doublestar.SplitPattern(filepath.ToSlash(pattern))
		err := doublestar.GlobWalk(os.DirFS(base), pat, func(path string, d fs.DirEntry) error {
			if d.IsDir() {
				return nil
			}
			if _, err := FormatOf(path); err != nil {
				return nil
			}
			add(filepath.Join(base, path))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// LoadFiles reads every file matched by patterns and concatenates their
// tasks in path order. "-" reads one JSON document from opts.Stdin first.
func LoadFiles(patterns []string, opts FileOptions) ([]task.Task, error) {
	var tasks []task.Task

	for _, p := range patterns {
		if p != Stdin {
			continue
		}
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		got, err := Decode(in, FormatJSON, opts.JSONPath)
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		tasks = append(tasks, got...)
		break
	}

	files, err := Expand(patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 && tasks == nil {
		return nil, fmt.Errorf("%v: %w", patterns, ErrNoInput)
	}

	for _, f := range files {
		got, err := LoadFile(f, opts.JSONPath)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, got...)
	}
	return tasks, nil
}

// LoadFile reads one JSON or YAML task file.
func LoadFile(path, jsonPath string) ([]task.Task, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	tasks, err := decodeBytes(data, format, jsonPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

// Decode reads tasks from r in the given format.
func Decode(r io.Reader, format Format, jsonPath string) ([]task.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return decodeBytes(data, format, jsonPath)
}

func decodeBytes(data []byte, format Format, jsonPath string) ([]task.Task, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data, jsonPath)
	case FormatYAML:
		return decodeYAML(data)
	default:
		return nil, fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
	}
}

func decodeJSON(data []byte, jsonPath string) ([]task.Task, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}

	raw := data
	switch {
	case jsonPath != "":
		res := gjson.GetBytes(data, jsonPath)
		if !res.Exists() {
			return nil, fmt.Errorf("%q: %w", jsonPath, ErrPathNotFound)
		}
		raw = []byte(res.Raw)
	case gjson.ParseBytes(data).IsObject():
		res := gjson.GetBytes(data, "tasks")
		if !res.Exists() {
			return nil, fmt.Errorf("%q: %w", "tasks", ErrPathNotFound)
		}
		raw = []byte(res.Raw)
	}

	var tasks []task.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func decodeYAML(data []byte) ([]task.Task, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	node := doc.Content[0]
	if node.Kind == yaml.MappingNode {
		var list *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == "tasks" {
				list = node.Content[i+1]
				break
			}
		}
		if list == nil {
			return nil, fmt.Errorf("%q: %w", "tasks", ErrPathNotFound)
		}
		node = list
	}

	var tasks []task.Task
	if err := node.Decode(&tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}
