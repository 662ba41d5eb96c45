package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/vbonduro/foodscan/internal/config"
	"github.com/vbonduro/foodscan/internal/domain"
	"github.com/vbonduro/foodscan/internal/imagesource"
	"github.com/vbonduro/foodscan/internal/logging"
	"github.com/vbonduro/foodscan/internal/service"
	"github.com/vbonduro/foodscan/internal/vision"
	claudevision "github.com/vbonduro/foodscan/internal/vision/claude"
	geminivision "github.com/vbonduro/foodscan/internal/vision/gemini"
	ollamavision "github.com/vbonduro/foodscan/internal/vision/ollama"
	"github.com/vbonduro/foodscan/internal/web"
)

var (
	imageURLFlag  string
	imageFileFlag string
	emailFlag     string
	nameFlag      string
)

var rootCmd = &cobra.Command{
	Use:   "foodscan",
	Short: "Nutrition estimates for food photos",
	Long: `foodscan relays food photos to a hosted vision model and returns a
structured nutrition breakdown.

Configuration is read from the environment (PORT, INFERENCE_BACKEND,
GEMINI_API_KEY, ...). Running without a subcommand starts the server.

Examples:
  foodscan serve
  foodscan analyze --image-url https://example.com/lunch.jpg
  foodscan analyze --image-file ./plate.jpg --email a@b.com --name A`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single image and print the response envelope",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&imageURLFlag, "image-url", "u", "", "URL of the image to download")
	analyzeCmd.Flags().StringVarP(&imageFileFlag, "image-file", "f", "", "Local image file to send inline")
	analyzeCmd.Flags().StringVar(&emailFlag, "email", "", "User email echoed in the response")
	analyzeCmd.Flags().StringVar(&nameFlag, "name", "", "User name echoed in the response")
	analyzeCmd.MarkFlagsMutuallyExclusive("image-url", "image-file")

	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads and validates configuration and builds the pipeline shared by
// every subcommand.
func setup() (*config.Config, *service.AnalysisService, *slog.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	svc := service.NewAnalysisService(
		imagesource.NewMaterializer(cfg.FetchTimeout, logger),
		newVisionAnalyzer(cfg, logger),
		logger,
	)
	return cfg, svc, logger, cleanup, nil
}

func newVisionAnalyzer(cfg *config.Config, logger *slog.Logger) vision.Analyzer {
	switch cfg.InferenceBackend {
	case config.BackendClaude:
		logger.Info("using Claude vision backend", "model", cfg.Claude.Model)
		return claudevision.NewClaudeAnalyzer(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL, cfg.InferenceTimeout)
	case config.BackendOllama:
		logger.Info("using Ollama vision backend", "model", cfg.Ollama.Model)
		return ollamavision.NewOllamaAnalyzer(cfg.Ollama.Host, cfg.Ollama.Model, cfg.InferenceTimeout)
	default:
		logger.Info("using Gemini vision backend", "model", cfg.Gemini.Model)
		return geminivision.NewGeminiAnalyzer(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, cfg.InferenceTimeout)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, svc, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(gin.ReleaseMode)
	server := web.NewServer(svc, web.Options{
		MaxBodyBytes: cfg.MaxBodyBytes,
		CORSOrigins:  cfg.CORSOrigins,
		EnablePprof:  cfg.PprofEnabled,
	}, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.ListenAndServe(ctx, cfg.ListenAddr()); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	req, err := requestFromFlags()
	if err != nil {
		return err
	}

	_, svc, logger, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := svc.Analyze(context.Background(), req)
	if err != nil {
		envelope := map[string]any{"success": false, "error": err.Error()}
		var derr *domain.Error
		if errors.As(err, &derr) && derr.Details != "" {
			envelope["details"] = derr.Details
		}
		_ = printJSON(cmd, envelope)
		return err
	}

	if result, err := vision.DecodeNutrition(data); err == nil {
		printSummary(cmd, result)
	} else {
		logger.Warn("completion does not match the nutrition shape", "error", err)
	}

	return printJSON(cmd, map[string]any{
		"success":   true,
		"data":      data,
		"userEmail": req.UserEmail,
		"userName":  req.UserName,
	})
}

func requestFromFlags() (domain.AnalysisRequest, error) {
	req := domain.AnalysisRequest{UserEmail: emailFlag, UserName: nameFlag}
	switch {
	case imageFileFlag != "":
		data, err := os.ReadFile(imageFileFlag)
		if err != nil {
			return req, fmt.Errorf("read image file: %w", err)
		}
		req.Image = domain.InlineImage(base64.StdEncoding.EncodeToString(data))
	case imageURLFlag != "":
		req.Image = domain.RemoteImage(imageURLFlag)
	default:
		return req, errors.New("one of --image-url or --image-file is required")
	}
	return req, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSummary writes a human-readable breakdown to stderr so stdout stays
// valid JSON.
func printSummary(cmd *cobra.Command, r *domain.NutritionResult) {
	w := cmd.ErrOrStderr()
	for _, f := range r.Foods {
		fmt.Fprintf(w, "%-24s %-18s %5d kcal  P %3dg  C %3dg  F %3dg\n",
			f.Name, f.Portion, f.Calories, f.Protein, f.Carbs, f.Fat)
	}
	fmt.Fprintf(w, "%-24s %-18s %5d kcal  P %3dg  C %3dg  F %3dg\n",
		"TOTAL", "", r.TotalCalories, r.TotalProtein, r.TotalCarbs, r.TotalFat)
}
