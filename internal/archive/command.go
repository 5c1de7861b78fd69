package archive

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// maxCommandOutput bounds the tool output quoted in errors.
const maxCommandOutput = 2048

// Command runs an external tar-compatible tool: "<tool> -xf <archive>" inside destDir.
type Command struct {
	// tool is the executable name looked up on PATH.
	tool string
	// lookPath resolves tool; replaced in tests.
	lookPath func(string) (string, error)
}

// NewCommand creates an extractor backed by the named tool.
func NewCommand(tool string) *Command {
	return &Command{
		tool:     tool,
		lookPath: exec.LookPath,
	}
}

// Name returns the tool name.
func (c *Command) Name() string {
	return c.tool
}

// Available reports whether the tool is on PATH.
func (c *Command) Available() bool {
	_, err := c.lookPath(c.tool)

	return err == nil
}

// Extract runs the tool synchronously; a nonzero exit status is an error.
func (c *Command) Extract(ctx context.Context, archivePath, destDir string) error {
	path, err := c.lookPath(c.tool)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", c.tool, ErrExtraction, err)
	}

	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, path, "-xf", archivePath)
	cmd.Dir = destDir
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err = cmd.Run(); err != nil {
		return fmt.Errorf("%s -xf %s: %w: %w (%s)", c.tool, archivePath, ErrExtraction, err, truncate(output.String()))
	}

	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxCommandOutput {
		return s[:maxCommandOutput] + "..."
	}

	return s
}
