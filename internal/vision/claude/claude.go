package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/foodscan/internal/domain"
	"github.com/vbonduro/foodscan/internal/vision"
)

// maxTokens leaves headroom over a typical reply, roughly 300 tokens for a
// plate with a handful of items.
const maxTokens = 1024

type ClaudeAnalyzer struct {
	client *anthropic.Client
	model  string
}

// NewClaudeAnalyzer returns an analyzer for the Anthropic Messages API. An
// empty baseURL keeps the SDK default.
func NewClaudeAnalyzer(apiKey, model, baseURL string, timeout time.Duration) *ClaudeAnalyzer {
	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeAnalyzer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

// buildMessages constructs a single user turn: the image, then the prompt.
func buildMessages(img domain.EncodedImage) []anthropic.Message {
	return []anthropic.Message{{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewImageMessageContent(
				anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					img.MIMEType,
					img.Data,
				),
			),
			anthropic.NewTextMessageContent(vision.NutritionPrompt),
		},
	}}
}

func (a *ClaudeAnalyzer) Complete(ctx context.Context, img domain.EncodedImage) (string, error) {
	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(img),
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			return blk.GetText(), nil
		}
	}
	return "", errors.New("claude response has no text content")
}
