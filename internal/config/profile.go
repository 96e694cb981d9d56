package config

import (
	"os"
	"path/filepath"
)

// Profile resolves the named profile: its spec, merged with the `default`
// profile spec (if any) and the built-in defaults, in that priority order.
func (c *Config) Profile(name string) (*Profile, error) {
	spec, ok := c.raw.Profile[name]
	if !ok {
		return nil, newError("profile", "profile %q is not defined", name)
	}
	return c.resolveSpec(name, spec)
}

// DefaultProfile implements spec.md's three-way rule for an unspecified
// profile name: with zero profiles defined, the built-in default profile is
// used outright; with exactly one profile defined, that profile is used
// regardless of its name; with several profiles defined, a profile literally
// named "default" must exist.
func (c *Config) DefaultProfile() (*Profile, error) {
	switch len(c.raw.Profile) {
	case 0:
		return c.resolveSpec("default", ProfileSpec{})
	case 1:
		for name, spec := range c.raw.Profile {
			return c.resolveSpec(name, spec)
		}
	}
	if spec, ok := c.raw.Profile["default"]; ok {
		return c.resolveSpec("default", spec)
	}
	return nil, newError("profile", "you must specify the profile or define a 'default' profile")
}

// resolveSpec merges spec with the `default` profile spec (unless name is
// itself "default") and the built-in defaults, then validates and finalizes
// the result into a Profile.
func (c *Config) resolveSpec(name string, spec ProfileSpec) (*Profile, error) {
	layers := []ProfileSpec{spec}
	if name != "default" {
		if def, ok := c.raw.Profile["default"]; ok {
			layers = append(layers, def)
		}
	}
	layers = append(layers, builtinDefaults())

	merged := mergeProfileSpecs(layers...)

	if len(merged.Lua) == 0 {
		return nil, newError("profile."+name+".lua", "interpreter command is empty")
	}

	profile := &Profile{
		Name:           name,
		InterpreterCmd: append([]string(nil), merged.Lua...),
		IncludeGlobs:   append([]string(nil), merged.Include...),
		ExcludeGlobs:   append([]string(nil), merged.Exclude...),
	}

	if merged.Init != nil && *merged.Init != "" {
		initPath := *merged.Init
		if !filepath.IsAbs(initPath) {
			initPath = filepath.Join(c.rootDir, initPath)
		}
		if resolved, err := filepath.EvalSymlinks(initPath); err == nil {
			initPath = resolved
		} else if os.IsNotExist(err) {
			return nil, newError("profile."+name+".init", "init script %q does not exist", *merged.Init)
		}
		profile.InitScript = initPath
		profile.ExcludeGlobs = append(profile.ExcludeGlobs, relGlob(c.rootDir, initPath))
	}

	return profile, nil
}

// relGlob returns a literal exclude pattern matching the root-relative,
// forward-slash form of abs, so the init script is excluded from discovery
// by the same mechanism as any other exclude glob.
func relGlob(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Group resolves the named group: a depth-first, order-preserving,
// cycle-safe walk of profile-or-nested-group members. Each member is tried
// first as a profile name, then as a group name. Profiles already present
// in the result (by name) are not inserted again; groups already visited
// are not re-entered (silently skipped, not an error), matching the
// original's permissive "a group may legally reference itself" behavior.
func (c *Config) Group(name string) ([]*Profile, error) {
	var result []*Profile
	seenProfiles := map[string]bool{}
	visitedGroups := map[string]bool{}
	if err := c.groupInner(name, &result, seenProfiles, visitedGroups); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Config) groupInner(name string, result *[]*Profile, seenProfiles, visitedGroups map[string]bool) error {
	members, ok := c.raw.Group[name]
	if !ok {
		return newError("group", "group %q is not defined", name)
	}
	if visitedGroups[name] {
		return nil
	}
	visitedGroups[name] = true

	for _, member := range members {
		if spec, ok := c.raw.Profile[member]; ok {
			if seenProfiles[member] {
				continue
			}
			p, err := c.resolveSpec(member, spec)
			if err != nil {
				return err
			}
			seenProfiles[member] = true
			*result = append(*result, p)
			continue
		}
		if _, ok := c.raw.Group[member]; ok {
			if err := c.groupInner(member, result, seenProfiles, visitedGroups); err != nil {
				return err
			}
			continue
		}
		return newError("group", "profile or group %q is not defined", member)
	}
	return nil
}
