package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/vbonduro/foodscan/internal/domain"
	"github.com/vbonduro/foodscan/internal/vision"
)

// ErrNoImage is returned when a request carries neither an encoded payload
// nor a remote location.
var ErrNoImage = errors.New("no image URL or base64 data provided")

// imageMaterializer is the subset of imagesource.Materializer that
// AnalysisService requires.
type imageMaterializer interface {
	Materialize(ctx context.Context, src domain.ImageSource) (domain.EncodedImage, error)
}

type AnalysisService struct {
	images    imageMaterializer
	visionAPI vision.Analyzer
	logger    *slog.Logger
}

func NewAnalysisService(images imageMaterializer, visionAPI vision.Analyzer, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		images:    images,
		visionAPI: visionAPI,
		logger:    logger,
	}
}

// Analyze runs one request through materialize, inference and parsing.
// Every error it returns is a *domain.Error tagged with the failing stage.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (json.RawMessage, error) {
	logger := s.logger.With("user_name", req.UserName, "user_email", req.UserEmail)

	if req.Image.IsZero() {
		return nil, &domain.Error{Kind: domain.KindValidation, Err: ErrNoImage}
	}
	logger.Info("analysis started", "source", req.Image.Kind(), "image_url", req.Image.URL())

	img, err := s.images.Materialize(ctx, req.Image)
	if err != nil {
		logger.Error("image fetch failed", "error", err)
		return nil, domain.NewError(domain.KindFetch, err)
	}

	completion, err := s.visionAPI.Complete(ctx, img)
	if err != nil {
		logger.Error("inference failed", "error", err)
		return nil, domain.NewError(domain.KindInference, err)
	}
	logger.Debug("completion received", "raw", completion)

	data, err := vision.ParseCompletion(completion)
	if err != nil {
		logger.Error("completion parse failed", "error", err, "raw", completion)
		return nil, err
	}

	logger.Info("analysis complete", "bytes", len(data))
	return data, nil
}
