package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rcflow/rcflow/domain/config"
)

// envPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)

// expandEnv expands ${VAR} references in the input.
//
//   - ${VAR} expands to the value of VAR, empty when unset (an error
//     in strict mode)
//   - ${VAR:-default} expands to VAR, or "default" when VAR is unset
//     or empty
//   - ${VAR:?message} fails with the message when VAR is unset or empty
func expandEnv(input string, strict bool) (string, error) {
	var missing []string

	result := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		inner := match[2 : len(match)-1]

		name, modifier, hasModifier := strings.Cut(inner, ":")
		value, exists := os.LookupEnv(name)

		if hasModifier {
			switch {
			case strings.HasPrefix(modifier, "-"):
				if !exists || value == "" {
					return modifier[1:]
				}
			case strings.HasPrefix(modifier, "?"):
				if !exists || value == "" {
					missing = append(missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
					return match
				}
			}
			return value
		}

		if !exists {
			if strict {
				missing = append(missing, name)
			}
			return ""
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", config.ErrMissingEnvVar, strings.Join(missing, ", "))
	}

	return result, nil
}

// ExpandEnv expands environment variables, treating missing ones as
// empty.
func ExpandEnv(input string) string {
	result, _ := expandEnv(input, false)
	return result
}

// ExpandEnvStrict expands environment variables and returns an error
// for missing ones.
func ExpandEnvStrict(input string) (string, error) {
	return expandEnv(input, true)
}
