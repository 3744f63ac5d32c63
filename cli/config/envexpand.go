// Package config loads preload.yaml, the defaults file for preload run.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} with values from the
// process environment.
//
// ${VAR} expands to the value, or empty when unset. ${VAR:-default}
// expands to the default when VAR is unset or empty. Unset variables are
// not an error; missing required values fail validation later.
func ExpandEnv(input string) string {
	return ExpandWith(input, os.LookupEnv)
}

// ExpandWith is ExpandEnv over an arbitrary lookup function.
func ExpandWith(input string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := lookup(groups[1]); ok && value != "" {
			return value
		}
		return groups[2]
	})
}
