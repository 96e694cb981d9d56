package config

// builtinDefaults returns the lowest-priority profile spec layer: the
// defaults a field falls back to when neither the named profile nor a
// `default` profile spec set it.
func builtinDefaults() ProfileSpec {
	return ProfileSpec{
		Lua:     []string{"lua"},
		Include: []string{"{src,lua}/**/*.lua"},
		Exclude: []string{},
	}
}
