package config

import "testing"

func TestBuiltinDefaults(t *testing.T) {
	d := builtinDefaults()
	if len(d.Lua) != 1 || d.Lua[0] != "lua" {
		t.Fatalf("unexpected default lua command: %v", d.Lua)
	}
	if len(d.Include) != 1 || d.Include[0] != "{src,lua}/**/*.lua" {
		t.Fatalf("unexpected default include: %v", d.Include)
	}
	if len(d.Exclude) != 0 {
		t.Fatalf("expected empty default exclude, got %v", d.Exclude)
	}
}
