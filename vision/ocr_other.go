//go:build !darwin

package vision

import (
	"bytes"
	"fmt"
	"os/exec"
)

// recognizeText performs OCR with tesseract when it is installed.
// Missing engine or recognition failure degrade to empty text upstream.
func recognizeText(imagePath, language string) (string, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", nil
	}

	args := []string{imagePath, "stdout"}
	if language != "" {
		args = append(args, "-l", language)
	}

	var stdout bytes.Buffer
	cmd := exec.Command("tesseract", args...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return stdout.String(), nil
}
