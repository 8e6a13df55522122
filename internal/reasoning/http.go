package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nutritrack/internal/common/config"
	"nutritrack/internal/common/errors"
	httpclient "nutritrack/internal/common/http"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/pipeline"
)

const (
	httpServiceName  = "genai"
	generatePath     = "/api/ai/generate"
	defaultMaxTokens = 800
)

type generateRequest struct {
	Prompt      string                 `json:"prompt"`
	Context     map[string]interface{} `json:"context"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature"`
}

type generateResponse struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// HTTPReasoner posts prompts to a generation service at {base_url}/api/ai/generate.
type HTTPReasoner struct {
	url         string
	apiKey      string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	client      *httpclient.Client
	logger      logger.Logger
}

func NewHTTPReasoner(cfg config.GenAIConfig, log logger.Logger) *HTTPReasoner {
	timeout := config.GetDuration(cfg.Timeout)
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &HTTPReasoner{
		url:         strings.TrimRight(cfg.BaseURL, "/") + generatePath,
		apiKey:      cfg.APIKey,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		// The per-call context carries the deadline; the client itself has none.
		client: httpclient.NewClient(0, cfg.MaxRetries),
		logger: log,
	}
}

// WithBackoff overrides the retry backoff base.
func (r *HTTPReasoner) WithBackoff(base time.Duration) *HTTPReasoner {
	r.client.WithBackoff(base)
	return r
}

func (r *HTTPReasoner) Reason(ctx context.Context, req pipeline.Request) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	body := generateRequest{
		Prompt: BuildPrompt(req),
		Context: map[string]interface{}{
			"runId":   req.RunID,
			"stageId": req.StageID,
			"role":    req.Role,
		},
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	}

	var headers map[string]string
	if r.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + r.apiKey}
	}

	start := time.Now()
	var resp generateResponse
	if err := r.client.PostJSON(ctx, r.url, headers, body, &resp); err != nil {
		r.logger.Warn("Reasoning request failed", map[string]interface{}{
			"stageId": req.StageID,
			"error":   err.Error(),
		})
		return "", upstreamError(httpServiceName, err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errors.NewUpstreamMalformedResponseError(httpServiceName, fmt.Errorf("empty text in response"))
	}

	r.logger.Info("Reasoning completed", map[string]interface{}{
		"stageId":     req.StageID,
		"duration":    time.Since(start).String(),
		"sourceCount": len(resp.Sources),
	})
	return text, nil
}
