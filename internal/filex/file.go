// Package filex resolves and creates the directories the client writes to.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (and parents) with owner-only permissions and
// returns its absolute path. Relative paths are resolved against the
// working directory; a leading "~/" is expanded to the user's home.
// The session database holds bearer tokens, hence 0700.
func EnsureDir(dir string) (string, error) {
	resolved, err := resolve(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(resolved, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", resolved, err)
	}

	return resolved, nil
}

func resolve(dir string) (string, error) {
	if rest, ok := strings.CutPrefix(dir, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("home dir: %w", err)
		}
		return filepath.Join(home, rest), nil
	}

	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return filepath.Join(cwd, dir), nil
}
