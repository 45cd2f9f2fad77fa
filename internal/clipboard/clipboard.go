// Package clipboard copies the path of a written bundle so it can be
// pasted into a file dialog or a terminal.
package clipboard

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	atclip "github.com/atotto/clipboard"
)

// isWayland returns true if the session is running under Wayland.
func isWayland() bool {
	return os.Getenv("WAYLAND_DISPLAY") != ""
}

// CopyPath puts the absolute form of path on the system clipboard.
// On Wayland it uses wl-copy (the X11 clipboard is not shared with native
// Wayland apps); elsewhere it goes through atotto/clipboard, which uses
// pbcopy on macOS and xclip or xsel on X11.
func CopyPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	if isWayland() {
		return abs, copyWayland(abs)
	}
	if atclip.Unsupported {
		return abs, fmt.Errorf("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	if err := atclip.WriteAll(abs); err != nil {
		return abs, fmt.Errorf("write to clipboard: %w", err)
	}
	return abs, nil
}

func copyWayland(text string) error {
	if _, err := exec.LookPath("wl-copy"); err != nil {
		return fmt.Errorf("wl-copy not found: %w (install with: apt install wl-clipboard)", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "wl-copy", "--", text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("wl-copy: %w", err)
	}
	return nil
}
