package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/combinewear/wardrobe-backend/pkg/config"
	"github.com/combinewear/wardrobe-backend/pkg/logger"
)

const retryBaseDelay = 500 * time.Millisecond

// Client wraps the Gemini SDK for text generation and garment image analysis.
type Client struct {
	client      *genai.Client
	textModel   string
	visionModel string
	timeout     time.Duration
	maxRetries  int
	logg        *logger.Logger
}

func NewClient(ctx context.Context, cfg config.GeminiConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	c := &Client{
		client:      client,
		textModel:   cfg.Model,
		visionModel: cfg.VisionModel,
		timeout:     cfg.RequestTimeout,
		maxRetries:  cfg.MaxRetries,
		logg:        logg,
	}

	if logg != nil {
		logg.Info(ctx, "gemini client initialized")
	}

	return c, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// GenerateText sends a text prompt to the configured model and returns the
// concatenated text parts of the first candidate.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client not initialized")
	}
	return c.generate(ctx, c.textModel, genai.Text(prompt))
}

// AnalyzeImage sends an image plus an instruction prompt to the vision model.
// The format is the image subtype ("jpeg", "png"), not the full MIME type.
func (c *Client) AnalyzeImage(ctx context.Context, prompt string, format string, data []byte) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client not initialized")
	}
	if len(data) == 0 {
		return "", errors.New("image data is required")
	}
	return c.generate(ctx, c.visionModel, genai.Text(prompt), genai.ImageData(format, data))
}

func (c *Client) generate(ctx context.Context, modelName string, parts ...genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(modelName)

	var out string
	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewExponential(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			if isTransient(err) {
				if c.logg != nil {
					c.logg.Warn(ctx, "gemini request failed, retrying")
				}
				return retry.RetryableError(err)
			}
			return err
		}
		text, err := firstCandidateText(resp)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return out, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("gemini returned no text content")
	}
	return b.String(), nil
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
		return true
	default:
		return false
	}
}

// StripCodeFence removes a wrapping markdown code fence if the model added
// one despite being told not to.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		// drop a language tag like "json"
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ImageFormat maps a MIME type to the subtype the SDK expects.
func ImageFormat(mimeType string) string {
	if idx := strings.IndexByte(mimeType, '/'); idx >= 0 {
		return mimeType[idx+1:]
	}
	return mimeType
}
