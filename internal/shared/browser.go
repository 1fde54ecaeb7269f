package shared

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch rt := getRuntime(); rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// Browser navigates to authorization URLs by opening the system browser.
//
// When the browser cannot be launched the URL is written to Fallback so the user can open it by hand.
type Browser struct {
	Fallback io.Writer
	open     func(string) error
}

// NewBrowser creates a [Browser] that prints to fallback when no browser can be opened.
func NewBrowser(fallback io.Writer) *Browser {
	return &Browser{Fallback: fallback, open: OpenBrowser}
}

// Navigate opens url, falling back to printing it.
func (b *Browser) Navigate(url string) error {
	open := b.open
	if open == nil {
		open = OpenBrowser
	}
	if err := open(url); err != nil {
		if b.Fallback == nil {
			return err
		}
		_, werr := fmt.Fprintf(b.Fallback, "Could not open a browser (%v).\nOpen this URL to continue:\n%s\n", err, url)
		return werr
	}
	return nil
}
