package upgrade

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ensurePathEntry appends a PATH export line to the user's detected
// shell init file if dir isn't already on PATH. Best-effort: a
// missing HOME or unwritable init file is reported but never fatal to
// the install itself (the caller wraps the error accordingly).
func ensurePathEntry(dir string) error {
	for _, entry := range strings.Split(os.Getenv("PATH"), string(os.PathListSeparator)) {
		if entry == dir {
			return nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolving home directory: %w", err)
	}
	initFile := detectShellInitFile(home)
	line := fmt.Sprintf("\n# added by xmlhub upgrade\nexport PATH=\"%s:$PATH\"\n", dir)

	f, err := os.OpenFile(initFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", initFile, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing to %s: %w", initFile, err)
	}
	return nil
}

// detectShellInitFile picks a login shell's init file based on $SHELL,
// defaulting to .bashrc when unrecognized.
func detectShellInitFile(home string) string {
	shell := os.Getenv("SHELL")
	switch {
	case strings.Contains(shell, "zsh"):
		return filepath.Join(home, ".zshrc")
	case strings.Contains(shell, "fish"):
		return filepath.Join(home, ".config", "fish", "config.fish")
	default:
		return filepath.Join(home, ".bashrc")
	}
}
