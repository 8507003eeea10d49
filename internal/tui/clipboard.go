package tui

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// copyText copies text to the system clipboard.
func copyText(text, command string) error {
	cmd := command
	if cmd == "" {
		cmd = detectClipboardCommand()
	}
	if cmd == "" {
		return errors.New("no clipboard command available")
	}

	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return errors.New("invalid clipboard command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)

	return c.Run()
}

// detectClipboardCommand picks wl-copy on Wayland, then xclip or xsel.
func detectClipboardCommand() string {
	if _, err := exec.LookPath("wl-copy"); err == nil {
		return "wl-copy"
	}
	if _, err := exec.LookPath("xclip"); err == nil {
		return "xclip -selection clipboard"
	}
	if _, err := exec.LookPath("xsel"); err == nil {
		return "xsel --clipboard --input"
	}
	return ""
}
