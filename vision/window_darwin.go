package vision

import (
	"bytes"
	"os/exec"
	"strings"
)

const frontWindowScript = `
tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	try
		set winTitle to name of front window of frontApp
	on error
		set winTitle to ""
	end try
end tell
if winTitle is "" then
	return appName
end if
return appName & " - " & winTitle
`

// activeWindowTitle returns the frontmost window title, or "" when it
// cannot be determined (no accessibility permission, no window).
func activeWindowTitle() string {
	var stdout bytes.Buffer
	cmd := exec.Command("osascript", "-e", frontWindowScript)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}
