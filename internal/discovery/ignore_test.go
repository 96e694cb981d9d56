package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

type stubIgnorer struct{ ignored bool }

func (s *stubIgnorer) IsIgnored(_ string, _ bool) bool { return s.ignored }

type recordingIgnorer struct {
	ignored bool
	calls   []string
}

func (r *recordingIgnorer) IsIgnored(path string, _ bool) bool {
	r.calls = append(r.calls, path)
	return r.ignored
}

func TestCompositeIgnorer_SkipsNil(t *testing.T) {
	c := NewCompositeIgnorer(nil, &stubIgnorer{ignored: true}, nil)
	if !c.IsIgnored("anything", false) {
		t.Fatalf("expected true from the one real ignorer")
	}
}

func TestCompositeIgnorer_ShortCircuits(t *testing.T) {
	first := &recordingIgnorer{ignored: true}
	second := &recordingIgnorer{ignored: false}
	c := NewCompositeIgnorer(first, second)
	if !c.IsIgnored("test.lua", false) {
		t.Fatalf("expected ignored")
	}
	if len(second.calls) != 0 {
		t.Fatalf("second ignorer should not have been consulted")
	}
}

func TestCompositeIgnorer_NoMatch(t *testing.T) {
	c := NewCompositeIgnorer(&stubIgnorer{ignored: false}, &stubIgnorer{ignored: false})
	if c.IsIgnored("test.lua", false) {
		t.Fatalf("expected not ignored")
	}
}

func TestLunestIgnoreMatcher_MissingFileIsNil(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadLunestIgnore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil matcher when .lunestignore is absent")
	}
}

func TestLunestIgnoreMatcher_MatchesPatterns(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".lunestignore"), []byte("*.log\nfixtures/\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadLunestIgnore(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m == nil {
		t.Fatalf("expected non-nil matcher")
	}
	if !m.IsIgnored("debug.log", false) {
		t.Fatalf("expected debug.log to be ignored")
	}
	if !m.IsIgnored("fixtures", true) {
		t.Fatalf("expected fixtures/ to be ignored")
	}
	if m.IsIgnored("src/a.lua", false) {
		t.Fatalf("expected src/a.lua to not be ignored")
	}
}
