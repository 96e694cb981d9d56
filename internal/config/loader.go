package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadFromFile reads and parses a TOML configuration file at path, resolving
// its contained profiles and groups against rootDir. Unknown TOML keys
// produce slog warnings (not errors), so a config written for a newer
// version of lunest still loads under an older binary.
func LoadFromFile(path, rootDir string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := parse(data, rootDir)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// parse decodes TOML bytes into a Config rooted at rootDir. It is the single
// entry point LoadFromFile and discovery funnel through, and is exercised
// directly by tests that don't need a file on disk.
func parse(data []byte, rootDir string) (*Config, error) {
	var raw configFile
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}
	warnUndecodedKeys(meta, rootDir)
	return &Config{raw: raw, rootDir: rootDir}, nil
}

// warnUndecodedKeys logs a warning for each key in the TOML document that did
// not map to any field in configFile, so users can add new fields without
// breaking older versions of lunest.
func warnUndecodedKeys(meta toml.MetaData, source string) {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return
	}

	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}

	slog.Warn("unknown config keys will be ignored",
		"source", source,
		"keys", strings.Join(keys, ", "),
	)
}
