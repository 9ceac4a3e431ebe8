package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wbrown/janus-olap/olap/understand"
)

// commandModel answers prompts by running an external program with the
// prompt on stdin and reading the completion from stdout.
type commandModel struct {
	name string
	args []string
}

func (m commandModel) Complete(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, m.name, m.args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", m.name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", m.name, err)
	}
	return stdout.String(), nil
}

func (f *globalFlags) model() understand.Model {
	if f.modelCmd == "" {
		return nil
	}
	return commandModel{name: f.modelCmd, args: f.modelArgs}
}
