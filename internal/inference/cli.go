// Package inference invokes the vision-capable model. The transport is an
// external CLI; the Client interface keeps it swappable for tests and future
// SDK-based implementations.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/example/studysync/internal/application"
)

// Client converts a prompt (with embedded local file references) into reply
// text.
type Client interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// runFunc executes a command and returns its stdout. Injected so tests can
// observe arguments without spawning processes.
type runFunc func(ctx context.Context, name string, args []string, extraEnv []string) ([]byte, error)

// CLIClient shells out to the gemini CLI, requesting a JSON-formatted reply.
type CLIClient struct {
	binary string
	model  string
	apiKey string
	run    runFunc
}

// NewCLIClient constructs a CLIClient. model defaults to "pro".
func NewCLIClient(model, apiKey string) *CLIClient {
	if model == "" {
		model = "pro"
	}
	return &CLIClient{
		binary: "gemini",
		model:  model,
		apiKey: apiKey,
		run:    runCommand,
	}
}

// Infer performs one synchronous CLI invocation and extracts the reply text
// from its JSON envelope.
func (c *CLIClient) Infer(ctx context.Context, prompt string) (string, error) {
	args := []string{"-p", prompt, "-m", c.model, "--output-format", "json"}

	var extraEnv []string
	if c.apiKey != "" {
		extraEnv = append(extraEnv, "GOOGLE_API_KEY="+c.apiKey)
	}

	out, err := c.run(ctx, c.binary, args, extraEnv)
	if err != nil {
		return "", fmt.Errorf("inference: %w", err)
	}
	return DecodeReply(out)
}

// DecodeReply extracts the answer text from a reply envelope. Envelopes differ
// between CLI versions, so both known field names are accepted.
func DecodeReply(raw []byte) (string, error) {
	var envelope struct {
		Response string `json:"response"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("inference: decode envelope: %w", err)
	}
	if text := strings.TrimSpace(envelope.Response); text != "" {
		return text, nil
	}
	if text := strings.TrimSpace(envelope.Text); text != "" {
		return text, nil
	}
	return "", application.ErrNoInferenceOutput
}

func runCommand(ctx context.Context, name string, args []string, extraEnv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}
