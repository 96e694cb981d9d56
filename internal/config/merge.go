package config

import (
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// mergeProfileSpecs layers ProfileSpec values from highest to lowest
// priority: layers[0] wins for any field it sets, falling through to
// layers[1], layers[2], ... for fields layers[0] leaves unset. Field
// presence (not zero-valueness) decides precedence: an explicit
// `exclude = []` is a set field and is never overridden by a lower layer.
// The layering itself is delegated to koanf's confmap provider, loaded
// lowest-priority first so each higher layer only overwrites the keys it
// actually set.
func mergeProfileSpecs(layers ...ProfileSpec) ProfileSpec {
	k := koanf.New(".")
	for i := len(layers) - 1; i >= 0; i-- {
		m := specToMap(layers[i])
		if len(m) == 0 {
			continue
		}
		// confmap.Provider.Read never errors; Load's error is always nil here.
		_ = k.Load(confmap.Provider(m, "."), nil)
	}
	var merged ProfileSpec
	_ = k.Unmarshal("", &merged)
	return merged
}

// specToMap converts a ProfileSpec to a map containing only the fields that
// were actually set, so koanf's layered Load only overwrites those keys.
func specToMap(s ProfileSpec) map[string]any {
	m := map[string]any{}
	if s.Lua != nil {
		m["lua"] = s.Lua
	}
	if s.Include != nil {
		m["include"] = s.Include
	}
	if s.Exclude != nil {
		m["exclude"] = s.Exclude
	}
	if s.Init != nil {
		m["init"] = *s.Init
	}
	return m
}
