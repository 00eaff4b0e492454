//go:build !darwin

package vision

import (
	"bytes"
	"os/exec"
	"strings"
)

// activeWindowTitle returns the focused window title via xdotool, or ""
// when the tool is missing or fails.
func activeWindowTitle() string {
	if _, err := exec.LookPath("xdotool"); err != nil {
		return ""
	}
	var stdout bytes.Buffer
	cmd := exec.Command("xdotool", "getactivewindow", "getwindowname")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}
