package pocs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func noEnv(string) (string, bool) { return "", false }

func TestResolveRoot_DefaultsToParentOfWebRoot(t *testing.T) {
	webRoot := filepath.Join("opt", "panoptes", "POCS", "web")
	got := ResolveRoot(noEnv, webRoot)
	want := filepath.Join("opt", "panoptes", "POCS")
	if got != want {
		t.Fatalf("ResolveRoot = %q, want %q", got, want)
	}
}

func TestResolveRoot_BlankEnvIgnored(t *testing.T) {
	lookup := func(string) (string, bool) { return "   ", true }
	got := ResolveRoot(lookup, "/srv/pocs/web")
	if got != "/srv/pocs" {
		t.Fatalf("ResolveRoot = %q, want /srv/pocs", got)
	}
}

func TestNewSearchPath_IncludesEnvValue(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == EnvVar {
			return "/var/panoptes/POCS", true
		}
		return "", false
	}
	p := NewSearchPath([]string{"/usr/lib/panoptes"}, lookup, "/srv/web")
	if !p.Contains("/var/panoptes/POCS") {
		t.Fatalf("search path %v does not contain $POCS", p)
	}
	if p[len(p)-1] != "/var/panoptes/POCS" {
		t.Fatalf("resolved root must be appended last, got %v", p)
	}
	if p.Contains("/srv") {
		t.Fatalf("web root parent should not be used when $POCS is set: %v", p)
	}
}

func TestLocate(t *testing.T) {
	empty := t.TempDir()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, confDirName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	c, err := Locate(SearchPath{empty, root})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if c.Root != root || c.ConfDir != filepath.Join(root, confDirName) {
		t.Fatalf("Locate = %+v", c)
	}

	_, err = Locate(SearchPath{empty})
	if !errors.Is(err, ErrCompanionNotFound) {
		t.Fatalf("Locate err = %v, want ErrCompanionNotFound", err)
	}
}
