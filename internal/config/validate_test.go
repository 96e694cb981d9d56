package config

import "testing"

func TestValidateGlobs_RejectsInvalidPattern(t *testing.T) {
	err := ValidateGlobs("profile.a.include", []string{"src/**/*.lua", "["})
	if err == nil {
		t.Fatalf("expected error for malformed glob")
	}
}

func TestValidateGlobs_AcceptsValidPatterns(t *testing.T) {
	err := ValidateGlobs("profile.a.include", []string{"{src,lua}/**/*.lua", "vendor/**"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateProfile_ChecksBothGlobSets(t *testing.T) {
	p := &Profile{Name: "a", IncludeGlobs: []string{"ok/**"}, ExcludeGlobs: []string{"["}}
	if err := ValidateProfile(p); err == nil {
		t.Fatalf("expected error from invalid exclude glob")
	}
}
