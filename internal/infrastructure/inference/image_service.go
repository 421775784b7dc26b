package inference

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"resty.dev/v3"

	"github.com/creedpetitt/ai-services-backend/internal/config"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/observability"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// GeneratedImage is a single image produced by a provider.
type GeneratedImage struct {
	URL           string
	RevisedPrompt string
	Model         string
}

// ImageGenerator produces images from text prompts.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, model string) (*GeneratedImage, error)
	DefaultModel() string
}

// ImageService implements ImageGenerator against an OpenAI-compatible
// images endpoint.
type ImageService struct {
	client       *resty.Client
	baseURL      string
	defaultModel string
	timeout      time.Duration
	logger       zerolog.Logger
}

var _ ImageGenerator = (*ImageService)(nil)

// NewImageService builds an image service from the first active provider
// entry with an "openai" vendor. Returns nil when no entry qualifies;
// callers treat a nil service as image generation being unavailable.
func NewImageService(cfg *config.Config, entries []config.ProviderBootstrapEntry, logger zerolog.Logger) *ImageService {
	for _, entry := range entries {
		if !entry.Active || !strings.EqualFold(entry.Vendor, "openai") {
			continue
		}
		timeout := 2 * time.Minute
		if cfg != nil && cfg.ImageGenerationTimeout > 0 {
			timeout = cfg.ImageGenerationTimeout
		}
		defaultModel := "dall-e-3"
		if cfg != nil && cfg.ImageDefaultModel != "" {
			defaultModel = cfg.ImageDefaultModel
		}
		return &ImageService{
			client:       newProviderClient(entry),
			baseURL:      strings.TrimRight(entry.BaseURL, "/"),
			defaultModel: defaultModel,
			timeout:      timeout,
			logger:       logger,
		}
	}
	return nil
}

// DefaultModel implements ImageGenerator.
func (s *ImageService) DefaultModel() string {
	return s.defaultModel
}

type imageGenerateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageGenerateResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate implements ImageGenerator.
func (s *ImageService) Generate(ctx context.Context, prompt, model string) (*GeneratedImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation, "image prompt must not be empty", nil)
	}
	if strings.TrimSpace(model) == "" {
		model = s.defaultModel
	}

	ctx, span := observability.StartSpan(ctx, "inference", "images.generate")
	defer span.End()
	observability.AddSpanAttributes(ctx, attribute.String("image.model", model))

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var respBody imageGenerateResponse
	resp, err := s.client.R().
		SetContext(reqCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(imageGenerateRequest{
			Model:          model,
			Prompt:         prompt,
			N:              1,
			Size:           "1024x1024",
			ResponseFormat: "url",
		}).
		SetResult(&respBody).
		SetError(&respBody).
		Post(s.baseURL + "/images/generations")
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "image generation request failed")
	}
	if resp.IsError() {
		message := "image generation failed"
		if respBody.Error != nil && respBody.Error.Message != "" {
			message = message + ": " + respBody.Error.Message
		}
		genErr := platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil)
		observability.RecordError(ctx, genErr)
		return nil, genErr
	}
	if len(respBody.Data) == 0 || respBody.Data[0].URL == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "image generation returned no image", nil)
	}

	s.logger.Debug().
		Str("model", model).
		Msg("image generated")

	return &GeneratedImage{
		URL:           respBody.Data[0].URL,
		RevisedPrompt: respBody.Data[0].RevisedPrompt,
		Model:         model,
	}, nil
}
