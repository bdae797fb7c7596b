package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yuki-noguchi/pdf-to-markdown/internal/archive"
	"github.com/yuki-noguchi/pdf-to-markdown/internal/domain"
)

// GeminiProvider converts pages in process through a Gemini vision model
// instead of spawning the CLI tool.
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiProvider creates the hosted-model provider.
func NewGeminiProvider(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Convert sends the staged page image plus the conversion prompt to the
// model and concatenates the returned text parts.
func (p *GeminiProvider) Convert(ctx context.Context, workDir string, pageNo int) (string, error) {
	data, err := os.ReadFile(filepath.Join(workDir, archive.StagedImageName))
	if err != nil {
		return "", &domain.ConversionError{
			Provider: "gemini",
			Detail:   domain.TruncateMessage("failed to read staged page: " + err.Error()),
			Err:      err,
		}
	}

	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.1)

	p.logger.Debug("Invoking Gemini model",
		slog.String("model", p.model),
		slog.Int("page", pageNo),
	)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("png", data),
		genai.Text(pagePrompt(pageNo)),
	)
	if err != nil {
		return "", &domain.ConversionError{
			Provider: "gemini",
			Detail:   domain.TruncateMessage("gemini failed: " + err.Error()),
			Err:      err,
		}
	}

	text, err := extractText(resp)
	if err != nil {
		return "", &domain.ConversionError{
			Provider: "gemini",
			Detail:   domain.TruncateMessage(err.Error()),
			Err:      err,
		}
	}

	return strings.TrimSpace(text), nil
}

// Close releases the underlying API client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned no text parts")
	}
	return sb.String(), nil
}
