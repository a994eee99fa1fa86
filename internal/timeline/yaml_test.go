package timeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vexide/autons/compete"
)

const sampleTimeline = `name: skills
description: one minute programming skills run
steps:
  - phase: disabled
    duration: 3s
  - phase: autonomous
    duration: 1m
`

func TestParseYAML(t *testing.T) {
	tl, err := ParseYAML([]byte(sampleTimeline))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tl.Name != "skills" || len(tl.Steps) != 2 {
		t.Fatalf("unexpected timeline: %+v", tl)
	}
	if tl.Steps[1].Phase != compete.PhaseAutonomous || tl.Steps[1].Duration != time.Minute {
		t.Fatalf("unexpected step: %+v", tl.Steps[1])
	}
	if tl.Total() != 63*time.Second {
		t.Fatalf("unexpected total %s", tl.Total())
	}
}

func TestParseYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"no name":       "steps:\n  - phase: driver\n    duration: 1s\n",
		"no steps":      "name: x\n",
		"bad phase":     "name: x\nsteps:\n  - phase: halftime\n",
		"negative":      "name: x\nsteps:\n  - phase: driver\n    duration: -1s\n",
		"unknown field": "name: x\nloop: true\nsteps:\n  - phase: driver\n",
	}
	for name, payload := range cases {
		if _, err := ParseYAML([]byte(payload)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "skills.yaml")
	if err := os.WriteFile(path, []byte(sampleTimeline), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	files, err := LoadDir(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(files) != 1 || files[0].Path != path {
		t.Fatalf("unexpected files %+v", files)
	}

	if err := os.WriteFile(filepath.Join(root, "copy.yml"), []byte(sampleTimeline), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(root); err == nil {
		t.Fatalf("expected duplicate name error")
	}
}

func TestLoadDirMissing(t *testing.T) {
	files, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if files != nil {
		t.Fatalf("expected nil slice for missing dir, got %v", files)
	}
}
