// Package devserver is an in-memory backend that speaks the same REST
// contract as the production API. It backs cmd/duet-devserver and the
// end-to-end tests of the client packages.
package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sadopc/duet/internal/api"
	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

// Envelope codes used besides HTTP statuses.
const (
	codeOK       = 200
	codeConflict = 409
)

type response struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// Server holds schedules and categories in memory.
type Server struct {
	token string

	mu         sync.Mutex
	nextID     int64
	schedules  map[int64]api.ScheduleRecord
	categories map[int64]api.CategoryRecord
}

// New creates an empty server. A non-empty token makes every endpoint
// require "Authorization: Bearer <token>".
func New(token string) *Server {
	return &Server{
		token:      token,
		nextID:     1,
		schedules:  make(map[int64]api.ScheduleRecord),
		categories: make(map[int64]api.CategoryRecord),
	}
}

// Handler builds the echo instance serving /api/v1.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	g := e.Group("/api/v1")
	g.Use(s.auth)

	g.GET("/schedules", s.listSchedules)
	g.POST("/schedules", s.createSchedule)
	g.PATCH("/schedules", s.updateSchedule)
	g.DELETE("/schedules", s.deleteSchedule)
	g.GET("/schedules/detail", s.scheduleDetail)

	g.GET("/categories", s.listCategories)
	g.POST("/categories", s.createCategory)
	g.PATCH("/categories", s.updateCategory)
	g.DELETE("/categories", s.deleteCategory)
	return e
}

func (s *Server) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.token != "" && c.Request().Header.Get("Authorization") != "Bearer "+s.token {
			return fail(c, http.StatusUnauthorized, http.StatusUnauthorized, "unauthorized")
		}
		return next(c)
	}
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, response{Code: codeOK, Data: data, Message: "success"})
}

func fail(c echo.Context, status, code int, msg string) error {
	return c.JSON(status, response{Code: code, Message: msg})
}

func queryID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.QueryParam(name), 10, 64)
	return id, err == nil && id > 0
}

// ============================================================
// Schedules
// ============================================================

func (s *Server) listSchedules(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ok(c, s.sortedSchedules())
}

func (s *Server) scheduleDetail(c echo.Context) error {
	id, valid := queryID(c, "scheduleId")
	if !valid {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "scheduleId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, found := s.schedules[id]
	if !found {
		return fail(c, http.StatusNotFound, http.StatusNotFound, "schedule not found")
	}
	return ok(c, rec)
}

func (s *Server) createSchedule(c echo.Context) error {
	var req api.ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "malformed body")
	}
	if msg := validateSchedule(req); msg != "" {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := recordFromRequest(s.nextID, req)
	s.nextID++
	s.schedules[rec.ID] = rec
	return ok(c, rec)
}

func (s *Server) updateSchedule(c echo.Context) error {
	id, valid := queryID(c, "scheduleId")
	if !valid {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "scheduleId is required")
	}
	var req api.ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "malformed body")
	}
	if msg := validateSchedule(req); msg != "" {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.schedules[id]; !found {
		return fail(c, http.StatusNotFound, http.StatusNotFound, "schedule not found")
	}
	rec := recordFromRequest(id, req)
	s.schedules[id] = rec
	return ok(c, rec)
}

func (s *Server) deleteSchedule(c echo.Context) error {
	id, valid := queryID(c, "scheduleId")
	if !valid {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "scheduleId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.schedules[id]; !found {
		return fail(c, http.StatusNotFound, http.StatusNotFound, "schedule not found")
	}
	delete(s.schedules, id)
	return ok(c, nil)
}

func validateSchedule(req api.ScheduleRequest) string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	start, err := datetime.Parse(req.StartTime)
	if err != nil {
		return "startTime is invalid"
	}
	if req.EndTime != nil {
		end, err := datetime.Parse(*req.EndTime)
		if err != nil {
			return "endTime is invalid"
		}
		if end.Before(start) {
			return "endTime is before startTime"
		}
	}
	return ""
}

func recordFromRequest(id int64, req api.ScheduleRequest) api.ScheduleRecord {
	return api.ScheduleRecord{
		ID:         id,
		Title:      req.Title,
		Content:    req.Content,
		Location:   req.Location,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		IsAllDay:   req.IsAllDay,
		CategoryID: req.CategoryID,
		Weather:    req.Weather,
	}
}

// ============================================================
// Categories
// ============================================================

func (s *Server) listCategories(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ok(c, s.sortedCategories())
}

func (s *Server) createCategory(c echo.Context) error {
	var req api.CategoryCreateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "malformed body")
	}
	name := strings.TrimSpace(req.Name)
	color, valid := model.ParseColor(req.Color)
	if name == "" || !valid {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "name and a palette color are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if holder := s.colorHolder(color); holder != 0 {
		return fail(c, http.StatusOK, codeConflict, "color "+string(color)+" is already in use")
	}
	rec := api.CategoryRecord{
		ID:           s.nextID,
		Name:         name,
		Color:        string(color),
		CategoryType: string(model.CategoryTypeSchedule),
	}
	s.nextID++
	s.categories[rec.ID] = rec
	return ok(c, rec)
}

func (s *Server) updateCategory(c echo.Context) error {
	var req api.CategoryUpdateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "malformed body")
	}
	name := strings.TrimSpace(req.Name)
	color, valid := model.ParseColor(req.Color)
	if req.CategoryID <= 0 || name == "" || !valid {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "categoryId, name and a palette color are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, found := s.categories[req.CategoryID]
	if !found {
		return fail(c, http.StatusNotFound, http.StatusNotFound, "category not found")
	}
	if holder := s.colorHolder(color); holder != 0 && holder != rec.ID {
		return fail(c, http.StatusOK, codeConflict, "color "+string(color)+" is already in use")
	}
	rec.Name = name
	rec.Color = string(color)
	s.categories[rec.ID] = rec
	return ok(c, rec)
}

func (s *Server) deleteCategory(c echo.Context) error {
	id, valid := queryID(c, "categoryId")
	if !valid {
		return fail(c, http.StatusBadRequest, http.StatusBadRequest, "categoryId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.categories[id]; !found {
		return fail(c, http.StatusNotFound, http.StatusNotFound, "category not found")
	}
	// Schedules keep their categoryId; clients treat it as dangling.
	delete(s.categories, id)
	return ok(c, nil)
}

// colorHolder returns the id of the category holding color, or 0. Callers hold s.mu.
func (s *Server) colorHolder(color model.Color) int64 {
	for id, rec := range s.categories {
		if strings.EqualFold(rec.Color, string(color)) {
			return id
		}
	}
	return 0
}

// ============================================================
// Seeding and inspection
// ============================================================

// SeedCategory inserts a category directly, bypassing the color check.
func (s *Server) SeedCategory(name string, color model.Color) api.CategoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := api.CategoryRecord{
		ID:           s.nextID,
		Name:         name,
		Color:        string(color),
		CategoryType: string(model.CategoryTypeSchedule),
	}
	s.nextID++
	s.categories[rec.ID] = rec
	return rec
}

// SeedSchedule inserts a schedule directly and returns it with its id.
func (s *Server) SeedSchedule(sc model.Schedule) api.ScheduleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := api.RecordFromSchedule(sc)
	rec.ID = s.nextID
	s.nextID++
	s.schedules[rec.ID] = rec
	return rec
}

// Schedules returns the stored schedules ordered by id.
func (s *Server) Schedules() []api.ScheduleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedSchedules()
}

// Categories returns the stored categories ordered by id.
func (s *Server) Categories() []api.CategoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedCategories()
}

func (s *Server) sortedSchedules() []api.ScheduleRecord {
	out := make([]api.ScheduleRecord, 0, len(s.schedules))
	for _, rec := range s.schedules {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) sortedCategories() []api.CategoryRecord {
	out := make([]api.CategoryRecord, 0, len(s.categories))
	for _, rec := range s.categories {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
