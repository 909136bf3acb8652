package docx

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Open hands path to the platform's default application. It does not wait
// for the application or inspect its result.
func Open(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch viewer for %s: %w", path, err)
	}
	slog.Debug("opened document", "path", path, "launcher", cmd.Path)
	go func() { _ = cmd.Wait() }()
	return nil
}
