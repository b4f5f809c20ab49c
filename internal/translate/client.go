// Package translate adapts the external natural-language translation
// collaborator. The core pipeline never imports this package: translation
// happens before a command string enters the pipeline, and translated
// commands are classified exactly like typed ones.
package translate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const promptPreamble = `Translate the user's request into exactly one shell command for the current system.
Respond with the command only: no explanation, no code fences, no leading $.
If the request cannot be expressed as a single command, respond with the closest single command.

Request: `

// Client invokes claude -p as a subprocess and returns a single shell command.
type Client struct {
	Model       string
	Timeout     time.Duration
	CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Translate resolves a natural-language request into one shell command.
func (c *Client) Translate(ctx context.Context, request string) (string, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-p"}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	args = append(args, promptPreamble+request)

	cmdFn := c.CommandFunc
	if cmdFn == nil {
		cmdFn = exec.CommandContext
	}
	cmd := cmdFn(ctx, "claude", args...)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("translation timed out after %v", timeout)
		}
		return "", fmt.Errorf("translation failed: %w", err)
	}

	command := cleanResponse(string(out))
	if command == "" {
		return "", fmt.Errorf("translation returned no command")
	}
	return command, nil
}

// cleanResponse strips code fences, prompt sigils, and surrounding noise,
// keeping the first non-empty line.
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.TrimPrefix(line, "$ ")
		return strings.TrimSpace(line)
	}
	return ""
}
