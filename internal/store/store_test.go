package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sadopc/duet/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func local(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.Local)
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cache.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(SettingWeekStart, "sunday"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migrations do not reset settings.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	val, err := s2.GetSetting(SettingWeekStart)
	if err != nil {
		t.Fatal(err)
	}
	if val != "sunday" {
		t.Fatalf("week_start = %q after reopen, want sunday", val)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Schedule snapshots
// ============================================================

func TestLoadSchedulesEmpty(t *testing.T) {
	s := newTestStore(t)
	list, at, err := s.LoadSchedules()
	if err != nil {
		t.Fatal(err)
	}
	if list != nil || !at.IsZero() {
		t.Fatalf("expected no snapshot, got %d schedules at %v", len(list), at)
	}
}

func TestSaveAndLoadSchedules(t *testing.T) {
	s := newTestStore(t)

	end := local(2024, 6, 3, 12, 0)
	cat := int64(4)
	in := []model.Schedule{
		{ID: 2, Title: "Trip", Location: "Coast", StartTime: local(2024, 6, 1, 10, 0), EndTime: &end, CategoryID: &cat, Weather: model.WeatherSunny},
		{ID: 1, Title: "Call", Content: "mom", StartTime: local(2024, 5, 30, 18, 30)},
	}
	fetchedAt := time.Date(2024, 6, 1, 9, 0, 0, 123, time.UTC)
	if err := s.SaveSchedules(in, fetchedAt); err != nil {
		t.Fatal(err)
	}

	list, at, err := s.LoadSchedules()
	if err != nil {
		t.Fatal(err)
	}
	if !at.Equal(fetchedAt) {
		t.Fatalf("fetched_at = %v, want %v", at, fetchedAt)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 schedules, got %d", len(list))
	}

	// Ordered by start time.
	call, trip := list[0], list[1]
	if call.ID != 1 || call.Content != "mom" || call.EndTime != nil || call.CategoryID != nil {
		t.Fatalf("unexpected first schedule: %+v", call)
	}
	if !trip.StartTime.Equal(in[0].StartTime) || trip.EndTime == nil || !trip.EndTime.Equal(end) {
		t.Fatalf("trip times not preserved: %+v", trip)
	}
	if trip.CategoryID == nil || *trip.CategoryID != 4 {
		t.Fatalf("trip category not preserved: %+v", trip.CategoryID)
	}
	if trip.Weather != model.WeatherSunny || trip.Location != "Coast" {
		t.Fatalf("trip fields not preserved: %+v", trip)
	}
}

func TestSaveSchedulesReplaces(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	s.SaveSchedules([]model.Schedule{{ID: 1, Title: "a", StartTime: now}, {ID: 2, Title: "b", StartTime: now}}, now)
	if err := s.SaveSchedules([]model.Schedule{{ID: 3, Title: "c", StartTime: now}}, now); err != nil {
		t.Fatal(err)
	}

	list, _, _ := s.LoadSchedules()
	if len(list) != 1 || list[0].ID != 3 {
		t.Fatalf("expected only schedule 3, got %+v", list)
	}
}

func TestSaveSchedulesEmptyStillMarks(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	if err := s.SaveSchedules(nil, now); err != nil {
		t.Fatal(err)
	}
	list, at, err := s.LoadSchedules()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 || at.IsZero() {
		t.Fatalf("expected empty snapshot with a timestamp, got %d at %v", len(list), at)
	}
}

// ============================================================
// Category snapshots
// ============================================================

func TestSaveAndLoadCategories(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	in := []model.Category{
		{ID: 5, Name: "Gym", Color: model.ColorGreen, Type: model.CategoryTypeSchedule},
		{ID: 2, Name: "Work", Color: model.ColorRed, Type: model.CategoryTypeSchedule},
	}
	if err := s.SaveCategories(in, now); err != nil {
		t.Fatal(err)
	}

	list, at, err := s.LoadCategories()
	if err != nil {
		t.Fatal(err)
	}
	if at.IsZero() {
		t.Fatal("expected snapshot time")
	}
	if len(list) != 2 || list[0].ID != 2 || list[1].Color != model.ColorGreen {
		t.Fatalf("unexpected categories: %+v", list)
	}
}

func TestSaveCategoriesDuplicateColorFails(t *testing.T) {
	s := newTestStore(t)
	s.SaveCategories([]model.Category{{ID: 1, Name: "Work", Color: model.ColorRed}}, time.Now())

	err := s.SaveCategories([]model.Category{
		{ID: 1, Name: "Work", Color: model.ColorRed},
		{ID: 2, Name: "Also", Color: model.ColorRed},
	}, time.Now())
	if err == nil {
		t.Fatal("expected unique color violation")
	}

	// The failed save rolled back; the previous snapshot is intact.
	list, _, _ := s.LoadCategories()
	if len(list) != 1 || list[0].ID != 1 {
		t.Fatalf("expected previous snapshot, got %+v", list)
	}
}

func TestSnapshotTimeUnknownKind(t *testing.T) {
	s := newTestStore(t)
	at, err := s.SnapshotTime("nothing")
	if err != nil {
		t.Fatal(err)
	}
	if !at.IsZero() {
		t.Fatalf("expected zero time, got %v", at)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	defaults := map[SettingKey]string{
		SettingWeekStart:   "monday",
		SettingDefaultView: "calendar",
	}
	for k, expected := range defaults {
		val, err := s.GetSetting(k)
		if err != nil {
			t.Fatalf("GetSetting(%q): %v", k, err)
		}
		if val != expected {
			t.Fatalf("GetSetting(%q) = %q, want %q", k, val, expected)
		}
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting(SettingDefaultView, "reports")
	s.SetSetting(SettingDefaultView, "categories")
	val, _ := s.GetSetting(SettingDefaultView)
	if val != "categories" {
		t.Fatalf("expected categories, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSetting("nonexistent"); err == nil {
		t.Fatal("expected error for missing setting")
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting("custom_key", "custom_value"); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("unknown key should be rejected, got %v", err)
	}

	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 settings, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
}

func TestSetSettingRejectsValue(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting(SettingWeekStart, "friday"); !errors.Is(err, ErrSettingValue) {
		t.Fatalf("expected ErrSettingValue, got %v", err)
	}
	if err := s.SetSetting(SettingDefaultView, "Reports"); !errors.Is(err, ErrSettingValue) {
		t.Fatalf("values are case sensitive, got %v", err)
	}
	if val, _ := s.GetSetting(SettingWeekStart); val != "monday" {
		t.Fatalf("rejected write changed the value to %q", val)
	}
}

func TestSettingOrDefault(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetSetting(SettingDefaultView, "reports"); err != nil {
		t.Fatal(err)
	}
	if got := s.SettingOrDefault(SettingDefaultView); got != "reports" {
		t.Fatalf("stored value = %q, want reports", got)
	}

	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, string(SettingDefaultView)); err != nil {
		t.Fatal(err)
	}
	if got := s.SettingOrDefault(SettingDefaultView); got != "calendar" {
		t.Fatalf("missing row = %q, want calendar", got)
	}

	// Rows written by an older client are not trusted.
	if _, err := s.db.Exec(`UPDATE settings SET value = 'friday' WHERE key = ?`, string(SettingWeekStart)); err != nil {
		t.Fatal(err)
	}
	if got := s.SettingOrDefault(SettingWeekStart); got != "monday" {
		t.Fatalf("invalid row = %q, want monday", got)
	}
}

func TestSettingKeyDefaults(t *testing.T) {
	if SettingWeekStart.Default() != "monday" || SettingDefaultView.Default() != "calendar" {
		t.Fatal("unexpected defaults")
	}
	if SettingKey("other").Known() || SettingKey("other").Default() != "" {
		t.Fatal("unknown key should have no default")
	}
	if !SettingDefaultView.Allows("settings") || SettingWeekStart.Allows("") {
		t.Fatal("unexpected Allows result")
	}
}
