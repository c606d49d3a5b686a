package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

const (
	engineGeneratePath   = "/timetables/generate"
	engineMaxBodyBytes   = 32 << 20
	defaultEngineTimeout = 60 * time.Second
	// minEngineCandidates is the floor of the engine contract; configuration may only raise it.
	minEngineCandidates = 3
)

// EngineClient calls the external scheduling engine. It never retries; the caller
// decides whether to resubmit.
type EngineClient struct {
	baseURL       string
	timeout       time.Duration
	minCandidates int
	client        *http.Client
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewEngineClient constructs a client for the configured engine.
func NewEngineClient(cfg config.EngineConfig, metrics *MetricsService, logger *zap.Logger) *EngineClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultEngineTimeout
	}
	minCandidates := max(cfg.MinCandidates, minEngineCandidates)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngineClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		timeout:       timeout,
		minCandidates: minCandidates,
		client:        &http.Client{Timeout: timeout},
		metrics:       metrics,
		logger:        logger,
	}
}

type engineResponse struct {
	Candidates []models.Candidate `json:"candidates"`
}

// Generate sends the request to the engine and returns its candidate schedules.
func (c *EngineClient) Generate(ctx context.Context, req *models.GenerationRequest) ([]models.Candidate, error) {
	if req == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "generation request is required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to encode generation request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+engineGeneratePath, bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build engine request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.HeaderKey, id)
	}

	log := c.logger.With(zap.String("institute_id", req.InstituteID), zap.String("request_id", requestid.FromContext(ctx)))
	start := time.Now()

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.observe(EngineOutcomeUnavailable, start)
		timedOut := errors.Is(err, context.DeadlineExceeded) || isTimeout(err)
		log.Warn("scheduling engine unreachable", zap.Bool("timeout", timedOut), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, unavailableMessage(timedOut))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, engineMaxBodyBytes))
	if err != nil {
		c.observe(EngineOutcomeUnavailable, start)
		log.Warn("read engine response failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, unavailableMessage(isTimeout(err)))
	}

	switch {
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		c.observe(EngineOutcomeRejected, start)
		log.Info("scheduling engine rejected request", zap.Int("status", resp.StatusCode))
		return nil, engineRejection(body)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		c.observe(EngineOutcomeUnavailable, start)
		log.Warn("scheduling engine failed", zap.Int("status", resp.StatusCode))
		return nil, appErrors.Wrap(fmt.Errorf("engine responded with status %d", resp.StatusCode),
			appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, appErrors.ErrUpstreamUnavailable.Message)
	}

	var decoded engineResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.observe(EngineOutcomeUnavailable, start)
		log.Warn("malformed engine response", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "scheduling engine returned a malformed response")
	}

	if len(decoded.Candidates) < c.minCandidates || !candidatesWellFormed(decoded.Candidates) {
		c.observe(EngineOutcomeContractViolated, start)
		log.Warn("scheduling engine contract violated",
			zap.Int("candidates", len(decoded.Candidates)),
			zap.Int("required", c.minCandidates))
		return nil, appErrors.WithDetails(appErrors.ErrEngineContractViolation, map[string]interface{}{
			"candidates": len(decoded.Candidates),
			"required":   c.minCandidates,
		})
	}

	c.observe(EngineOutcomeSuccess, start)
	log.Info("scheduling engine returned candidates", zap.Int("candidates", len(decoded.Candidates)), zap.Duration("latency", time.Since(start)))
	return decoded.Candidates, nil
}

func (c *EngineClient) observe(outcome string, start time.Time) {
	c.metrics.ObserveEngineCall(outcome, time.Since(start))
}

// engineRejection surfaces the engine's own validation payload. detail wins over message;
// an unstructured body is passed through as text.
func engineRejection(body []byte) *appErrors.Error {
	var payload map[string]interface{}
	var detail interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		if v, ok := payload["detail"]; ok && v != nil {
			detail = v
		} else if v, ok := payload["message"]; ok && v != nil {
			detail = v
		}
	}
	if detail == nil {
		if text := strings.TrimSpace(string(body)); text != "" {
			detail = text
		}
	}

	message := "scheduling engine rejected the request"
	if text, ok := detail.(string); ok && text != "" {
		message = text
	}
	rejected := appErrors.Clone(appErrors.ErrValidation, message)
	if detail == nil {
		return rejected
	}
	return appErrors.WithDetails(rejected, map[string]interface{}{"engine": detail})
}

func candidatesWellFormed(candidates []models.Candidate) bool {
	for _, candidate := range candidates {
		header := bytes.TrimSpace(candidate.Header)
		if len(header) == 0 || bytes.Equal(header, []byte("null")) {
			return false
		}
	}
	return true
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func unavailableMessage(timedOut bool) string {
	if timedOut {
		return "scheduling engine timed out"
	}
	return appErrors.ErrUpstreamUnavailable.Message
}
