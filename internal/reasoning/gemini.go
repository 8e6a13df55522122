package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"nutritrack/internal/common/config"
	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/pipeline"
)

const (
	geminiServiceName  = "gemini"
	defaultGeminiModel = "gemini-2.0-flash"
)

// GeminiReasoner calls the Gemini API through the genai SDK.
type GeminiReasoner struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	timeout     time.Duration
	logger      logger.Logger
}

func NewGeminiReasoner(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (*GeminiReasoner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini reasoner requires an API key")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiReasoner{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: float32(cfg.Temperature),
		timeout:     config.GetDuration(cfg.Timeout),
		logger:      log,
	}, nil
}

func (r *GeminiReasoner) Reason(ctx context.Context, req pipeline.Request) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(r.temperature),
		MaxOutputTokens: r.maxTokens,
	}

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(BuildPrompt(req)), genCfg)
	if err != nil {
		r.logger.Warn("Gemini request failed", map[string]interface{}{
			"stageId": req.StageID,
			"model":   r.model,
			"error":   err.Error(),
		})
		return "", upstreamError(geminiServiceName, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.NewUpstreamMalformedResponseError(geminiServiceName, fmt.Errorf("response has no text"))
	}

	r.logger.Debug("Gemini response received", map[string]interface{}{
		"stageId": req.StageID,
		"model":   r.model,
	})
	return text, nil
}
