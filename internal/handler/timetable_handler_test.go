package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type generatorMock struct {
	instituteID string
	captured    dto.GenerateTimetableRequest
	candidates  []models.Candidate
	err         error
}

func (m *generatorMock) Generate(ctx context.Context, instituteID string, req dto.GenerateTimetableRequest) ([]models.Candidate, error) {
	m.instituteID = instituteID
	m.captured = req
	return m.candidates, m.err
}

type storeMock struct {
	instituteID string
	saved       dto.SaveTimetableRequest
	patch       models.HeaderPatch
	role        models.UserRole
	deletedID   int
	headers     []models.TimetableHeader
	details     *models.TimetableWithDetails
	err         error
}

func (m *storeMock) Save(ctx context.Context, instituteID string, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	m.instituteID, m.saved = instituteID, req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SaveTimetableResponse{OK: true, InstituteTimeTableID: req.Header.InstituteTimeTableID, Count: len(req.Details)}, nil
}

func (m *storeMock) List(ctx context.Context, instituteID string) ([]models.TimetableHeader, error) {
	m.instituteID = instituteID
	return m.headers, m.err
}

func (m *storeMock) GetDetails(ctx context.Context, instituteID string, id int) (*models.TimetableWithDetails, error) {
	m.instituteID = instituteID
	return m.details, m.err
}

func (m *storeMock) PatchHeader(ctx context.Context, instituteID string, id int, patch models.HeaderPatch) (*models.TimetableHeader, error) {
	m.instituteID, m.patch = instituteID, patch
	if m.err != nil {
		return nil, m.err
	}
	header := models.TimetableHeader{InstituteTimeTableID: id, InstituteID: instituteID}
	if patch.CurrentStatus != nil {
		header.CurrentStatus = *patch.CurrentStatus
	}
	return &header, nil
}

func (m *storeMock) Delete(ctx context.Context, instituteID string, id int, role models.UserRole) error {
	m.instituteID, m.deletedID, m.role = instituteID, id, role
	return m.err
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *appErrors.Error `json:"error"`
}

func newTimetableRouter(h *TimetableHandler, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(internalmiddleware.ContextUserKey, claims)
		}
	})
	router.POST("/generate", h.Generate)
	router.POST("/save", h.Save)
	router.GET("/list", h.List)
	router.GET("/details/:id", h.Details)
	router.PATCH("/header/:id", h.PatchHeader)
	router.DELETE("/:id", h.Delete)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	req, err := http.NewRequest(method, path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-1", InstituteID: "inst-1", Role: models.RoleAdmin}
}

func TestTimetableHandlerGenerate(t *testing.T) {
	gen := &generatorMock{candidates: []models.Candidate{{Header: []byte(`{"a":1}`)}, {Header: []byte(`{}`)}, {Header: []byte(`{}`)}}}
	router := newTimetableRouter(&TimetableHandler{generator: gen, store: &storeMock{}}, adminClaims())

	w, env := doJSON(t, router, http.MethodPost, "/generate",
		`{"session":"Fall","year":2024,"instituteID":"spoofed","courses":[{"name":"Physics Lab","kind":"Lab","creditHours":"5"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inst-1", gen.instituteID)
	assert.Equal(t, dto.FlexString("2024"), gen.captured.Year)
	assert.Equal(t, "5", gen.captured.Courses[0].CreditHours)

	var data dto.GenerateTimetableResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Candidates, 3)
}

func TestTimetableHandlerGenerateMalformedBody(t *testing.T) {
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: &storeMock{}}, adminClaims())

	w, env := doJSON(t, router, http.MethodPost, "/generate", `{"session":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestTimetableHandlerGenerateEngineFailure(t *testing.T) {
	gen := &generatorMock{err: appErrors.WithDetails(appErrors.ErrEngineContractViolation, map[string]interface{}{"candidates": 2})}
	router := newTimetableRouter(&TimetableHandler{generator: gen, store: &storeMock{}}, adminClaims())

	w, env := doJSON(t, router, http.MethodPost, "/generate", `{"session":"Fall","year":"2024"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "ENGINE_CONTRACT_VIOLATION", env.Error.Code)
}

func TestTimetableHandlerSaveUsesTokenTenant(t *testing.T) {
	store := &storeMock{}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, adminClaims())

	w, env := doJSON(t, router, http.MethodPost, "/save",
		`{"header":{"instituteTimeTableID":7,"instituteID":"other","year":"2024"},"details":[{"roomNumber":"F101","className":"CS-1A","courseName":"Algebra","day":"Mon","time":"10:00-11:00","instructorName":"Dr. Lee","timeTableID":12}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inst-1", store.instituteID)
	assert.Equal(t, dto.FlexString("12"), store.saved.Details[0].TimeTableID)

	var data dto.SaveTimetableResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, dto.SaveTimetableResponse{OK: true, InstituteTimeTableID: 7, Count: 1}, data)
}

func TestTimetableHandlerSaveConflicts(t *testing.T) {
	conflicts := []models.OccupancyViolation{{RoomNumber: "F101", Day: "Mon", Time: "10:00-11:00"}}
	store := &storeMock{err: appErrors.WithDetails(appErrors.ErrRoomConflict, map[string]interface{}{"conflicts": conflicts})}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, adminClaims())

	w, env := doJSON(t, router, http.MethodPost, "/save", `{"header":{"instituteTimeTableID":7},"details":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ROOM_CONFLICT", env.Error.Code)
	assert.Equal(t, []interface{}{map[string]interface{}{"roomNumber": "F101", "day": "Mon", "time": "10:00-11:00"}}, env.Error.Details["conflicts"])
}

func TestTimetableHandlerListRequiresTenant(t *testing.T) {
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: &storeMock{}}, &models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin})

	w, env := doJSON(t, router, http.MethodGet, "/list", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TENANT_REQUIRED", env.Error.Code)
}

func TestTimetableHandlerList(t *testing.T) {
	store := &storeMock{headers: []models.TimetableHeader{{InstituteTimeTableID: 3, InstituteID: "inst-1", Year: "2024"}}}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, adminClaims())

	w, env := doJSON(t, router, http.MethodGet, "/list", "")
	require.Equal(t, http.StatusOK, w.Code)
	var data dto.ListTimetablesResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, 3, data.Items[0].InstituteTimeTableID)
}

func TestTimetableHandlerDetails(t *testing.T) {
	store := &storeMock{details: &models.TimetableWithDetails{
		Header:  models.TimetableHeader{InstituteTimeTableID: 7},
		Details: []models.TimetableDetail{{RoomNumber: "F101"}},
	}}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, adminClaims())

	w, env := doJSON(t, router, http.MethodGet, "/details/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	var data models.TimetableWithDetails
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "F101", data.Details[0].RoomNumber)

	store.err = appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	w, env = doJSON(t, router, http.MethodGet, "/details/8", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/details/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerPatchHeader(t *testing.T) {
	store := &storeMock{}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, adminClaims())

	w, env := doJSON(t, router, http.MethodPatch, "/header/7", `{"currentStatus":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.patch.CurrentStatus)
	assert.True(t, *store.patch.CurrentStatus)
	assert.Nil(t, store.patch.Visibility)

	var data dto.PatchHeaderResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.Header.CurrentStatus)
}

func TestTimetableHandlerDeleteRejectsNonAdmin(t *testing.T) {
	store := &storeMock{}
	claims := adminClaims()
	claims.Role = models.RoleInstructor
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, claims)

	w, env := doJSON(t, router, http.MethodDelete, "/7", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
	assert.Zero(t, store.deletedID)
}

func TestTimetableHandlerDeleteChecksRoleBeforeTenant(t *testing.T) {
	store := &storeMock{}
	claims := &models.JWTClaims{UserID: "u-2", Role: models.RoleInstructor}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, claims)

	w, env := doJSON(t, router, http.MethodDelete, "/7", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	admin := &models.JWTClaims{UserID: "u-1", Role: models.RoleAdmin}
	router = newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, admin)
	w, env = doJSON(t, router, http.MethodDelete, "/7", "")
	assert.Equal(t, appErrors.ErrTenantRequired.Status, w.Code)
	assert.Equal(t, appErrors.ErrTenantRequired.Code, env.Error.Code)

	router = newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, nil)
	w, env = doJSON(t, router, http.MethodDelete, "/7", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	assert.Zero(t, store.deletedID)
}

func TestTimetableHandlerDelete(t *testing.T) {
	store := &storeMock{}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, adminClaims())

	w, env := doJSON(t, router, http.MethodDelete, "/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))
	assert.Equal(t, models.RoleAdmin, store.role)
	assert.Equal(t, "inst-1", store.instituteID)
}

func TestTimetableHandlerHidesInternalErrors(t *testing.T) {
	store := &storeMock{err: appErrors.Internal(errors.New("pq: connection refused"), "failed to list timetables")}
	router := newTimetableRouter(&TimetableHandler{generator: &generatorMock{}, store: store}, adminClaims())

	w, env := doJSON(t, router, http.MethodGet, "/list", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, appErrors.ErrInternal.Message, env.Error.Message)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

type exporterMock struct {
	format string
	err    error
}

func (m *exporterMock) Export(ctx context.Context, instituteID string, id int, format string) (*service.ExportFile, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: "timetable-7-2024.csv", ContentType: "text/csv; charset=utf-8", Body: []byte("Time,Mon\n")}, nil
}

func TestExportHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{}
	h := &ExportHandler{exporter: exporter}
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(internalmiddleware.ContextUserKey, adminClaims()) })
	router.GET("/export/:id", h.Export)

	req := httptest.NewRequest(http.MethodGet, "/export/7", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, `attachment; filename="timetable-7-2024.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Time,Mon\n", w.Body.String())
}
