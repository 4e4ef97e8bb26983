package model

import (
	"os"
	"path/filepath"

	"github.com/msageha/installwatch/internal/faults"
)

// Environment overrides for the config file and persistence directory.
const (
	EnvConfigPath = "INSTALLWATCH_CONFIG"
	EnvStateDir   = "INSTALLWATCH_STATE_DIR"
)

// ResolveConfigPath returns the configuration file path: the environment
// override when set, otherwise the given fallback.
func ResolveConfigPath(fallback string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return fallback
}

// ResolveStateDir determines where interaction state is persisted. Candidates
// are tried in order: env override, working-directory-adjacent hidden dir,
// user data dir, temp dir. The first candidate that can be created wins; if none
// can be created a configuration fault is returned.
func ResolveStateDir() (string, error) {
	var candidates []string

	if p := os.Getenv(EnvStateDir); p != "" {
		candidates = append(candidates, p)
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".installwatch"))
	}
	if data := userDataDir(); data != "" {
		candidates = append(candidates, filepath.Join(data, "installwatch"))
	}
	candidates = append(candidates, filepath.Join(os.TempDir(), "installwatch"))

	var lastErr error
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			lastErr = err
			continue
		}
		return dir, nil
	}
	return "", faults.Wrap(faults.KindConfiguration, lastErr)
}

// userDataDir returns the user-level application data directory, honoring
// XDG_DATA_HOME when present.
func userDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share")
}
