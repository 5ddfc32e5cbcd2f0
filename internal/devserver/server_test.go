package devserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/duet/internal/model"
)

func serve(t *testing.T, s *Server, method, target, body string, header map[string]string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealthz(t *testing.T) {
	rec, _ := serve(t, New("secret"), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuth(t *testing.T) {
	s := New("secret")

	rec, resp := serve(t, s, http.MethodGet, "/api/v1/schedules", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	rec, resp = serve(t, s, http.MethodGet, "/api/v1/schedules", "", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, codeOK, resp.Code)
}

func TestCreateSchedule_Validation(t *testing.T) {
	s := New("")

	tests := []struct {
		name string
		body string
	}{
		{"empty title", `{"title":" ","startTime":"2024-07-01T09:00:00"}`},
		{"bad start", `{"title":"x","startTime":"soon"}`},
		{"end before start", `{"title":"x","startTime":"2024-07-01T09:00:00","endTime":"2024-07-01T08:00:00"}`},
		{"malformed", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serve(t, s, http.MethodPost, "/api/v1/schedules", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, s.Schedules())
}

func TestCreateSchedule_AssignsIDs(t *testing.T) {
	s := New("")
	body := `{"title":"Lunch","startTime":"2024-07-01T12:00:00","endTime":null,"isAllDay":false,"categoryId":null}`

	serve(t, s, http.MethodPost, "/api/v1/schedules", body, nil)
	serve(t, s, http.MethodPost, "/api/v1/schedules", body, nil)

	list := s.Schedules()
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(2), list[1].ID)
	assert.Nil(t, list[0].EndTime)
}

func TestUpdateSchedule_Missing(t *testing.T) {
	s := New("")
	rec, _ := serve(t, s, http.MethodPatch, "/api/v1/schedules?scheduleId=5", `{"title":"x","startTime":"2024-07-01T09:00:00"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, s, http.MethodPatch, "/api/v1/schedules", `{"title":"x","startTime":"2024-07-01T09:00:00"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCategory_ColorConflict(t *testing.T) {
	s := New("")
	s.SeedCategory("Work", model.ColorRed)

	rec, resp := serve(t, s, http.MethodPost, "/api/v1/categories", `{"name":"Gym","color":"red","categoryType":"SCHEDULE"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, codeConflict, resp.Code)
	assert.Len(t, s.Categories(), 1)

	rec, _ = serve(t, s, http.MethodPost, "/api/v1/categories", `{"name":"Gym","color":"teal"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCategory_KeepsOwnColor(t *testing.T) {
	s := New("")
	work := s.SeedCategory("Work", model.ColorRed)

	_, resp := serve(t, s, http.MethodPatch, "/api/v1/categories", `{"categoryId":1,"name":"Office","color":"RED"}`, nil)
	assert.Equal(t, codeOK, resp.Code)
	assert.Equal(t, "Office", s.Categories()[0].Name)
	assert.Equal(t, work.ID, s.Categories()[0].ID)
}

func TestDeleteCategory_LeavesSchedules(t *testing.T) {
	s := New("")
	cat := s.SeedCategory("Work", model.ColorRed)
	s.SeedSchedule(model.Schedule{Title: "x", CategoryID: &cat.ID})

	rec, _ := serve(t, s, http.MethodDelete, "/api/v1/categories?categoryId=1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.Categories())

	list := s.Schedules()
	require.Len(t, list, 1)
	require.NotNil(t, list[0].CategoryID)
	assert.Equal(t, cat.ID, *list[0].CategoryID)
}
