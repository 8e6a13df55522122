// Package reasoning provides the collaborators that turn a stage request into
// text: a JSON-over-HTTP generation service, the Gemini API, and an offline
// echo used for local runs and tests.
package reasoning

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"

	"nutritrack/internal/common/config"
	"nutritrack/internal/common/errors"
	httpclient "nutritrack/internal/common/http"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/pipeline"
)

// ErrUpstreamUnavailable marks a collaborator that could not be reached or
// kept failing after retries.
var ErrUpstreamUnavailable = stderrors.New("UPSTREAM_UNAVAILABLE")

// New builds the reasoner selected by kind.
func New(ctx context.Context, kind string, cfg config.GenAIConfig, log logger.Logger) (pipeline.Reasoner, error) {
	switch kind {
	case config.ReasonerHTTP:
		return NewHTTPReasoner(cfg, log), nil
	case config.ReasonerGemini:
		return NewGeminiReasoner(ctx, cfg, log)
	case config.ReasonerEcho:
		return NewEchoReasoner(), nil
	default:
		return nil, fmt.Errorf("unknown reasoner %q", kind)
	}
}

func upstreamError(service string, err error) error {
	var netErr net.Error
	switch {
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &netErr) && netErr.Timeout():
		return errors.NewUpstreamTimeoutError(service, err)
	case stderrors.Is(err, httpclient.ErrDecode):
		return errors.NewUpstreamMalformedResponseError(service, err)
	default:
		return errors.NewUpstreamUnavailableError(service, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err))
	}
}
