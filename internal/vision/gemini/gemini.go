package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vbonduro/foodscan/internal/domain"
	"github.com/vbonduro/foodscan/internal/vision"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxErrorBody caps how much of an error response is kept as diagnostics.
const maxErrorBody = 64 * 1024

// request types mirror the generateContent REST body.
type request struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type GeminiAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiAnalyzer returns an analyzer calling model through the
// generateContent endpoint under baseURL. An empty baseURL uses
// DefaultBaseURL.
func NewGeminiAnalyzer(apiKey, model, baseURL string, timeout time.Duration) *GeminiAnalyzer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiAnalyzer{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func buildRequest(img domain.EncodedImage) request {
	return request{
		Contents: []content{{
			Parts: []part{
				{Text: vision.NutritionPrompt},
				{InlineData: &inlineData{MimeType: img.MIMEType, Data: img.Data}},
			},
		}},
	}
}

func (a *GeminiAnalyzer) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		a.baseURL, url.PathEscape(a.model), url.QueryEscape(a.apiKey))
}

func (a *GeminiAnalyzer) Complete(ctx context.Context, img domain.EncodedImage) (string, error) {
	payload, err := json.Marshal(buildRequest(img))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		// The *url.Error message embeds the request URL, key included.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &domain.StatusError{Service: "gemini", StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respBody.Candidates) == 0 {
		return "", errors.New("gemini response has no candidates")
	}
	parts := respBody.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == nil {
		return "", errors.New("gemini response has no text in first candidate")
	}
	return *parts[0].Text, nil
}
