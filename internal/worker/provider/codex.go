package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/archive"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// DefaultCodexBinary is used when the config leaves the binary unset.
const DefaultCodexBinary = "codex"

// CodexProvider runs the external codex CLI once per page. The tool is an
// opaque black box: it may be slow, it may fail, and it enforces its own
// timeouts if any.
type CodexProvider struct {
	binary string
	logger *slog.Logger
}

// NewCodexProvider creates the subprocess provider.
func NewCodexProvider(binary string, logger *slog.Logger) *CodexProvider {
	if binary == "" {
		binary = DefaultCodexBinary
	}
	return &CodexProvider{
		binary: binary,
		logger: logger,
	}
}

// Convert invokes the tool with the staged page image as its working input
// and captures the full stdout as the page's Markdown.
func (p *CodexProvider) Convert(ctx context.Context, workDir string, pageNo int) (string, error) {
	cmd := exec.CommandContext(ctx, p.binary, "exec", "-i", archive.StagedImageName, pagePrompt(pageNo))
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug("Invoking conversion tool",
		slog.String("binary", p.binary),
		slog.Int("page", pageNo),
	)

	if err := cmd.Run(); err != nil {
		detail := fmt.Sprintf("%s failed", p.binary)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail = fmt.Sprintf("%s failed(%d): %s",
				p.binary, exitErr.ExitCode(), domain.TruncateMessage(stderr.String()))
		}
		return "", &domain.ConversionError{
			Provider: p.binary,
			Detail:   detail,
			Err:      err,
		}
	}

	return strings.TrimSpace(stdout.String()), nil
}
