package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/config"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/middleware/requestid"
)

const threeCandidates = `{"candidates":[
{"header":{"fitness":0.91},"details":[{"roomNumber":"F101","day":"Mon","time":"08:00-09:00"}]},
{"header":{"fitness":0.88},"details":[]},
{"header":{"fitness":0.80},"details":[]}]}`

func newEngineFixture(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*EngineClient, *MetricsService) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	metrics := NewMetricsService()
	client := NewEngineClient(config.EngineConfig{BaseURL: server.URL + "/", Timeout: timeout, MinCandidates: 3}, metrics, nil)
	return client, metrics
}

func engineObservations(t *testing.T, metrics *MetricsService) uint64 {
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var total uint64
	for _, family := range families {
		if family.GetName() != "engine_request_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetHistogram().GetSampleCount()
		}
	}
	return total
}

func sampleGenerationRequest() *models.GenerationRequest {
	return &models.GenerationRequest{
		InstituteID: "inst-1",
		Session:     "Fall",
		Year:        "2024",
		Courses:     []models.Course{{Name: "Algebra", Kind: models.CourseKindLecture, CreditHours: 3}},
		Timeslots:   []models.TimeWindow{{Day: "Mon", Start: "08:00", End: "14:00"}},
	}
}

func TestEngineClientGenerateSuccess(t *testing.T) {
	var received models.GenerationRequest
	var gotRequestID, gotPath, gotMethod string
	client, metrics := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotRequestID = r.Header.Get(requestid.HeaderKey)
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(threeCandidates))
	}, time.Second)

	ctx := requestid.WithValue(context.Background(), "req-42")
	candidates, err := client.Generate(ctx, sampleGenerationRequest())
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.JSONEq(t, `{"fitness":0.91}`, string(candidates[0].Header))
	assert.JSONEq(t, `{"roomNumber":"F101","day":"Mon","time":"08:00-09:00"}`, string(candidates[0].Details[0]))
	assert.Equal(t, "/timetables/generate", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "req-42", gotRequestID)
	assert.Equal(t, "inst-1", received.InstituteID)
	assert.EqualValues(t, 1, engineObservations(t, metrics))
}

func TestEngineClientTooFewCandidates(t *testing.T) {
	client, _ := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"header":{},"details":[]},{"header":{},"details":[]}]}`))
	}, time.Second)

	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEngineContractViolation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, 2, appErr.Details["candidates"])
}

func TestEngineClientMinimumCannotBeLoweredBelowThree(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"header":{},"details":[]},{"header":{},"details":[]}]}`))
	}))
	t.Cleanup(server.Close)
	client := NewEngineClient(config.EngineConfig{BaseURL: server.URL, Timeout: time.Second, MinCandidates: 1}, nil, nil)

	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEngineContractViolation.Code, appErr.Code)
	assert.Equal(t, 3, appErr.Details["required"])
}

func TestEngineClientCandidateWithoutHeader(t *testing.T) {
	client, _ := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"header":{},"details":[]},{"header":null,"details":[]},{"details":[]}]}`))
	}, time.Second)

	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	assert.ErrorIs(t, err, appErrors.ErrEngineContractViolation)
}

func TestEngineClientPassesEngineDetailThrough(t *testing.T) {
	client, _ := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":{"failedTasks":["Algebra/CS-1A"],"clashes":["Mon 10:00 F101"]},"message":"ignored"}`))
	}, time.Second)

	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "scheduling engine rejected the request", appErr.Message)
	assert.Equal(t, map[string]interface{}{
		"failedTasks": []interface{}{"Algebra/CS-1A"},
		"clashes":     []interface{}{"Mon 10:00 F101"},
	}, appErr.Details["engine"])
}

func TestEngineClientUsesEngineMessage(t *testing.T) {
	client, _ := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"missing credit hours for course X"}`))
	}, time.Second)

	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "missing credit hours for course X", appErr.Message)
	assert.Equal(t, "missing credit hours for course X", appErr.Details["engine"])
}

func TestEngineClientServerError(t *testing.T) {
	client, metrics := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	}, time.Second)

	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstreamUnavailable.Code, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Nil(t, appErr.Details)
	assert.EqualValues(t, 1, engineObservations(t, metrics))
}

func TestEngineClientMalformedBody(t *testing.T) {
	client, _ := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy error</html>`))
	}, time.Second)

	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
}

func TestEngineClientTimeout(t *testing.T) {
	client, _ := newEngineFixture(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	start := time.Now()
	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEngineClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewEngineClient(config.EngineConfig{BaseURL: url, Timeout: time.Second}, nil, nil)
	_, err := client.Generate(context.Background(), sampleGenerationRequest())
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
}
