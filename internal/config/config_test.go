package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
	Ports   []int         `yaml:"ports"`
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := "name: tun1\ntimeout: 2s\nports: [6789, 443]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "tun1" || s.Timeout != 2*time.Second || len(s.Ports) != 2 {
		t.Fatalf("unexpected config: %+v", s)
	}
}

func TestLoadErrors(t *testing.T) {
	var s sample
	if err := Load("", &s); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if err := Decode([]byte("nmae: typo\n"), &s); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDecodeEmpty(t *testing.T) {
	s := sample{Name: "keep"}
	if err := Decode(nil, &s); err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if s.Name != "keep" {
		t.Fatalf("empty document should leave defaults, got %+v", s)
	}
}
