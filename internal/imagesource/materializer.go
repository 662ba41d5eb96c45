// Package imagesource turns an ImageSource into base64 data that can be
// embedded in an inference request.
package imagesource

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vbonduro/foodscan/internal/domain"
	"github.com/vbonduro/foodscan/internal/vision"
)

// maxErrorBody caps how much of a failed download is kept as diagnostics.
const maxErrorBody = 4096

type Materializer struct {
	client *http.Client
	logger *slog.Logger
}

// NewMaterializer returns a Materializer whose downloads are bounded by
// timeout. A single attempt is made per request.
func NewMaterializer(timeout time.Duration, logger *slog.Logger) *Materializer {
	return &Materializer{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Materialize returns the encoded image for src. Inline payloads are
// returned unchanged without touching the network.
func (m *Materializer) Materialize(ctx context.Context, src domain.ImageSource) (domain.EncodedImage, error) {
	if src.IsInline() {
		return domain.EncodedImage{Data: src.Encoded(), MIMEType: vision.ImageMIMEType}, nil
	}
	if !src.IsRemote() {
		return domain.EncodedImage{}, errors.New("no image source")
	}

	data, err := m.download(ctx, src.URL())
	if err != nil {
		return domain.EncodedImage{}, err
	}
	m.logger.Info("image downloaded", "bytes", len(data))

	return domain.EncodedImage{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: vision.ImageMIMEType,
	}, nil
}

func (m *Materializer) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", unwrapURLError(err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			m.logger.Error("failed to close image response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("failed to download image: %w", &domain.StatusError{
			Service:    "image host",
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
		})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// unwrapURLError drops the *url.Error wrapper so the message does not
// repeat the request URL, which may carry credentials in its query.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
