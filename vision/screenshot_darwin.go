package vision

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework Foundation
#import <CoreGraphics/CoreGraphics.h>
#import <Foundation/Foundation.h>

bool hasScreenRecordingPermission() {
    if (@available(macOS 11.0, *)) {
        return CGPreflightScreenCaptureAccess();
    }
    return true;
}

void requestScreenRecordingPermission() {
    if (@available(macOS 11.0, *)) {
        CGRequestScreenCaptureAccess();
    }
}
*/
import "C"
import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// HasPermission checks if the app has screen recording permission.
func HasPermission() bool {
	return bool(C.hasScreenRecordingPermission())
}

// RequestPermission requests screen recording permission from the system.
func RequestPermission() {
	C.requestScreenRecordingPermission()
}

// grabScreen captures the full screen to a temp PNG without sound and
// returns the file path.
func grabScreen() (string, error) {
	if !HasPermission() {
		RequestPermission()
		return "", fmt.Errorf("screen recording permission not granted")
	}

	fileName := fmt.Sprintf("redassist_screen_%d.png", time.Now().UnixNano())
	filePath := filepath.Join(os.TempDir(), fileName)

	// -x: do not play sound
	cmd := exec.Command("screencapture", "-x", filePath)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("screencapture failed: %w", err)
	}

	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("screenshot not saved: %w", err)
	}
	return filePath, nil
}
