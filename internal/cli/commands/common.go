package commands

import (
	"fmt"

	"github.com/Hankatuur/englishpod/internal/cli/config"
	"github.com/Hankatuur/englishpod/internal/cli/userconfig"
)

// resolveServerURL finds the server to talk to: the nearest englishpod.json
// wins, then the global user config default.
func resolveServerURL() (string, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL, nil
	}

	fallback, ucErr := userconfig.GetDefaultServer()
	if ucErr == nil && fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("no server configured. Run 'englishpod init <server-url>' first")
}
