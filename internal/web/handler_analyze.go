package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vbonduro/foodscan/internal/domain"
)

// analyzeRequest accepts JSON as well as urlencoded and multipart forms.
type analyzeRequest struct {
	ImageURL    string `json:"imageUrl" form:"imageUrl"`
	ImageBase64 string `json:"imageBase64" form:"imageBase64"`
	UserEmail   string `json:"userEmail" form:"userEmail"`
	UserName    string `json:"userName" form:"userName"`
}

// toDomain resolves the image source. An encoded payload wins over a URL
// when both are present.
func (b analyzeRequest) toDomain() domain.AnalysisRequest {
	req := domain.AnalysisRequest{UserEmail: b.UserEmail, UserName: b.UserName}
	switch {
	case b.ImageBase64 != "":
		req.Image = domain.InlineImage(b.ImageBase64)
	case b.ImageURL != "":
		req.Image = domain.RemoteImage(b.ImageURL)
	}
	return req
}

type analyzeResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	UserEmail string          `json:"userEmail"`
	UserName  string          `json:"userName"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status: "Food Scanner Server is running!",
		Endpoints: map[string]string{
			"health":  "GET /",
			"analyze": "POST /analyze-food",
		},
	})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var body analyzeRequest
	// An empty body binds as a request with no fields.
	if err := c.ShouldBind(&body); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// Outbound calls are bounded by their own timeouts and are not cancelled
	// when the caller goes away.
	data, err := s.service.Analyze(context.WithoutCancel(c.Request.Context()), body.toDomain())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Success:   true,
		Data:      data,
		UserEmail: body.UserEmail,
		UserName:  body.UserName,
	})
}

// writeError maps validation failures to 400 and everything else to 500.
func (s *Server) writeError(c *gin.Context, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		s.logger.Error("analysis failed", "error", err, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if derr.Kind == domain.KindValidation {
		c.JSON(http.StatusBadRequest, errorResponse{Error: derr.Error()})
		return
	}

	s.logger.Error("analysis failed", "kind", derr.Kind.String(), "error", err, "request_id", c.GetString(requestIDKey))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: derr.Error(), Details: derr.Details})
}
