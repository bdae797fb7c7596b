// Package provider abstracts the external tool that turns one page image
// into Markdown. The pipeline depends only on the Provider interface, so
// the subprocess tool, the hosted model or a test fake are interchangeable.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/config"
)

// Provider converts the page image staged in workDir into Markdown text.
// The page number is 1-based and only used for labeling the output. Any
// returned error is fatal to the job being processed.
type Provider interface {
	Convert(ctx context.Context, workDir string, pageNo int) (string, error)
}

// New builds the provider selected by the worker configuration.
func New(ctx context.Context, cfg *config.ProviderConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Kind {
	case config.ProviderCodex, "":
		return NewCodexProvider(cfg.Codex.Binary, logger), nil
	case config.ProviderGemini:
		apiKey := os.Getenv(cfg.Gemini.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set", cfg.Gemini.APIKeyEnv)
		}
		return NewGeminiProvider(ctx, apiKey, cfg.Gemini.Model, logger)
	default:
		return nil, fmt.Errorf("unknown provider kind: %q", cfg.Kind)
	}
}

// pagePrompt is the instruction both providers send alongside the staged
// page image.
func pagePrompt(pageNo int) string {
	return fmt.Sprintf(`You are given an image file "page.png" representing a single page of a PDF.

Task:
Convert the content into clean Markdown.

Rules:
- Output ONLY Markdown.
- Preserve headings and structure.
- Use tables for tabular data.
- Use bullet points when appropriate.
- Do not add explanations.
- If text is unreadable, mark as [UNREADABLE].

Add this comment at the top:
<!-- page: %d -->`, pageNo)
}
