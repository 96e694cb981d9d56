// Package config parses the profile configuration file, resolves named
// profiles and groups into fully-merged Profile records, and hosts the
// ambient logging/flag-binding setup shared by every CLI command.
package config

// configFile is the raw shape decoded from TOML. Field presence (not
// zero-valueness) drives merge precedence, so every field is a pointer or a
// nil-able slice: an explicit `exclude = []` and an omitted `exclude` key are
// different inputs to resolveSpec.
type configFile struct {
	Profile map[string]ProfileSpec `toml:"profile"`
	Group   map[string][]string    `toml:"group"`
}

// ProfileSpec is the pre-merge form of a profile as read from TOML. All
// fields are optional; unset fields are filled by resolveSpec from the `default`
// profile spec, then from the built-in defaults.
type ProfileSpec struct {
	Lua     []string `toml:"lua"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
	Init    *string  `toml:"init"`
}

// Profile is the immutable, fully-resolved configuration for one run pass.
type Profile struct {
	// Name is the profile's identifier, never empty.
	Name string

	// InterpreterCmd is a non-empty ordered sequence; InterpreterCmd[0] is
	// the logical interpreter name/path, the remainder are fixed arguments.
	InterpreterCmd []string

	// IncludeGlobs, ExcludeGlobs are glob sets interpreted relative to the
	// project root. Exclude beats include.
	IncludeGlobs []string
	ExcludeGlobs []string

	// InitScript is the absolute path of the init script, or "" if unset.
	InitScript string
}

// Config is the loaded, frozen configuration for one invocation.
type Config struct {
	raw     configFile
	rootDir string
}

// RootDir returns the project root directory this Config was loaded from.
func (c *Config) RootDir() string {
	return c.rootDir
}

// ProfileNames returns the names of every profile defined in the file, in
// map iteration order (callers that need determinism should sort).
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.raw.Profile))
	for name := range c.raw.Profile {
		names = append(names, name)
	}
	return names
}
