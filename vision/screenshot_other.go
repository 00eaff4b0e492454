//go:build !darwin

package vision

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// HasPermission checks if the app has screen recording permission.
func HasPermission() bool { return true }

// RequestPermission requests screen recording permission from the system.
func RequestPermission() {}

// grabScreen captures the full screen to a temp PNG using whichever
// capture tool the platform provides.
func grabScreen() (string, error) {
	fileName := fmt.Sprintf("redassist_screen_%d.png", time.Now().UnixNano())
	filePath := filepath.Join(os.TempDir(), fileName)

	tools := [][]string{
		{"gnome-screenshot", "-f", filePath},
		{"scrot", filePath},
		{"import", "-window", "root", filePath}, // ImageMagick
	}
	for _, tool := range tools {
		if _, err := exec.LookPath(tool[0]); err != nil {
			continue
		}
		if err := exec.Command(tool[0], tool[1:]...).Run(); err != nil {
			return "", fmt.Errorf("%s failed: %w", tool[0], err)
		}
		if _, err := os.Stat(filePath); err != nil {
			return "", fmt.Errorf("screenshot not saved: %w", err)
		}
		return filePath, nil
	}
	return "", fmt.Errorf("no screenshot tool found")
}
