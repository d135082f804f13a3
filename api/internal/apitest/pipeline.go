// Package apitest holds doubles shared by the HTTP handler tests.
package apitest

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/killallgit/scribe-api/internal/models"
	"github.com/killallgit/scribe-api/internal/services/notes"
	"github.com/killallgit/scribe-api/internal/services/pipeline"
)

// MockPipeline is a testify mock of the orchestrator surface used by handlers
type MockPipeline struct {
	mock.Mock

	// Events, when set, is returned by Subscribe
	Events chan pipeline.Event
}

func (m *MockPipeline) StartCapture(ctx context.Context, req pipeline.StartRequest) (*pipeline.State, error) {
	args := m.Called(ctx, req)
	return stateArg(args)
}

func (m *MockPipeline) PauseCapture(ctx context.Context, appointmentID string) (*pipeline.State, error) {
	args := m.Called(ctx, appointmentID)
	return stateArg(args)
}

func (m *MockPipeline) ResumeCapture(ctx context.Context, appointmentID string) (*pipeline.State, error) {
	args := m.Called(ctx, appointmentID)
	return stateArg(args)
}

func (m *MockPipeline) StopCaptureAndProcess(ctx context.Context, appointmentID string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error) {
	args := m.Called(ctx, appointmentID, progress)
	return outcomeArg(args)
}

func (m *MockPipeline) Retry(ctx context.Context, appointmentID string, progress pipeline.ProgressFunc) (*pipeline.Outcome, error) {
	args := m.Called(ctx, appointmentID, progress)
	return outcomeArg(args)
}

func (m *MockPipeline) CheckRetry(ctx context.Context, appointmentID string) error {
	return m.Called(ctx, appointmentID).Error(0)
}

func (m *MockPipeline) Discard(ctx context.Context, appointmentID string) error {
	return m.Called(ctx, appointmentID).Error(0)
}

func (m *MockPipeline) GetPipelineState(ctx context.Context, appointmentID string) (*pipeline.State, error) {
	args := m.Called(ctx, appointmentID)
	return stateArg(args)
}

func (m *MockPipeline) Subscribe(appointmentID string) (<-chan pipeline.Event, func()) {
	m.Called(appointmentID)
	if m.Events == nil {
		m.Events = make(chan pipeline.Event)
	}
	return m.Events, func() {}
}

func (m *MockPipeline) UpdateNote(ctx context.Context, noteID string, patch notes.SectionsPatch) (*models.ClinicalNote, error) {
	args := m.Called(ctx, noteID, patch)
	return noteArg(args)
}

func (m *MockPipeline) FinalizeNote(ctx context.Context, noteID string) (*models.ClinicalNote, error) {
	args := m.Called(ctx, noteID)
	return noteArg(args)
}

func (m *MockPipeline) IsLive(recordingID string) bool {
	return m.Called(recordingID).Bool(0)
}

func stateArg(args mock.Arguments) (*pipeline.State, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.State), args.Error(1)
}

func outcomeArg(args mock.Arguments) (*pipeline.Outcome, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.Outcome), args.Error(1)
}

func noteArg(args mock.Arguments) (*models.ClinicalNote, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClinicalNote), args.Error(1)
}

// Do serves one request against router and returns the recorder
func Do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals the recorder body into a map
func DecodeJSON(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

// ErrorCode returns the error code of an ErrorResponse body
func ErrorCode(w *httptest.ResponseRecorder) string {
	code, _ := DecodeJSON(w)["error"].(string)
	return code
}
