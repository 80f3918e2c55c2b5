// Package browser hands a URL to the OS default browser. Launch
// failure is reported to the caller but never fatal to the reader.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Open launches url in the system default browser.
func Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	// Don't wait: the browser outlives us and its exit code is noise.
	go func() { _ = cmd.Wait() }()
	return nil
}
