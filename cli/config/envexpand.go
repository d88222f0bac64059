// Package config loads the optional crier.yaml configuration file.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default} references.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references with
// environment variable values before the YAML is parsed. An unset or
// empty variable expands to its default when one is given, otherwise
// to the empty string; required values fail later at component
// validation rather than here.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(ref string) string {
		groups := envVarPattern.FindStringSubmatch(ref)
		name, fallback := groups[1], groups[2]
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}
