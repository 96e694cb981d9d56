package config

import (
	"github.com/bmatcuk/doublestar/v4"
)

// ValidateGlobs checks that every pattern in globs is a syntactically valid
// doublestar glob, returning the first invalid pattern's error wrapped with
// its position in the list.
func ValidateGlobs(field string, globs []string) error {
	for i, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return newError(field, "invalid glob pattern at index %d: %q", i, g)
		}
	}
	return nil
}

// ValidateProfile checks a fully-resolved Profile's glob sets for syntactic
// validity. Profile.resolveSpec already guarantees InterpreterCmd is
// non-empty and InitScript (if set) exists, so this only covers globs.
func ValidateProfile(p *Profile) error {
	if err := ValidateGlobs("profile."+p.Name+".include", p.IncludeGlobs); err != nil {
		return err
	}
	if err := ValidateGlobs("profile."+p.Name+".exclude", p.ExcludeGlobs); err != nil {
		return err
	}
	return nil
}
