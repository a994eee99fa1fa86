package timeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File pairs a parsed timeline with its on-disk source.
type File struct {
	Timeline Timeline
	Path     string
}

// ParseYAML decodes and validates a single timeline payload.
func ParseYAML(data []byte) (Timeline, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Timeline{}, fmt.Errorf("timeline: payload is empty")
	}
	var tl Timeline
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tl); err != nil {
		return Timeline{}, fmt.Errorf("timeline: decode: %w", err)
	}
	tl = tl.Normalized()
	if err := tl.Validate(); err != nil {
		return Timeline{}, err
	}
	return tl, nil
}

// LoadFile reads a YAML file from disk and returns the parsed timeline.
func LoadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("timeline: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("timeline: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("timeline: read %s: %w", path, err)
	}
	tl, err := ParseYAML(data)
	if err != nil {
		return File{}, fmt.Errorf("timeline: %s: %w", path, err)
	}
	return File{Timeline: tl, Path: filepath.Clean(path)}, nil
}

// LoadDir scans a directory for *.yaml timelines. Missing directories are
// treated as "no timelines". Duplicate names are rejected.
func LoadDir(dir string) ([]File, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("timeline: read %s: %w", trimmed, err)
	}
	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		file, err := LoadFile(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	seen := make(map[string]string, len(files))
	for _, file := range files {
		key := strings.ToLower(file.Timeline.Name)
		if existing, ok := seen[key]; ok {
			return nil, fmt.Errorf("timeline: duplicate name %s (%s and %s)", file.Timeline.Name, existing, file.Path)
		}
		seen[key] = file.Path
	}
	return files, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
