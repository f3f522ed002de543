package transport

import (
	"os"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	apperrors "github.com/arthur-debert/instaclone/pkg/errors"
)

// Expand splits a command template into an argv and substitutes $VAR
// and ${VAR} references in each token. Variables resolve against vars
// first, then the process environment; an unresolvable reference is a
// CONFIG_INVALID error rather than a silent empty string.
func Expand(template string, vars map[string]string) ([]string, error) {
	words, err := shellwords.Parse(template)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrConfig,
			"cannot parse command template %q", template)
	}
	if len(words) == 0 {
		return nil, apperrors.Newf(apperrors.ErrConfig, "empty command template %q", template)
	}

	var missing []string
	argv := make([]string, len(words))
	for i, word := range words {
		argv[i] = os.Expand(word, func(name string) string {
			if val, ok := vars[name]; ok {
				return val
			}
			if val, ok := os.LookupEnv(name); ok {
				return val
			}
			missing = append(missing, name)
			return ""
		})
	}
	if len(missing) > 0 {
		return nil, apperrors.Newf(apperrors.ErrConfig,
			"command template %q references undefined variables: %s",
			template, strings.Join(missing, ", "))
	}
	return argv, nil
}
