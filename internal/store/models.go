package store

// Snapshot kinds recorded in the snapshots table.
const (
	KindSchedules  = "schedules"
	KindCategories = "categories"
)

type Setting struct {
	Key   SettingKey
	Value string
}

// SettingKey names a row of the settings table.
type SettingKey string

const (
	SettingWeekStart   SettingKey = "week_start"
	SettingDefaultView SettingKey = "default_view"
)

// settingValues lists the accepted values of each key. The first one is the
// default.
var settingValues = map[SettingKey][]string{
	SettingWeekStart:   {"monday", "sunday"},
	SettingDefaultView: {"calendar", "categories", "reports", "settings"},
}

// Known reports whether k is a setting the client reads.
func (k SettingKey) Known() bool {
	_, ok := settingValues[k]
	return ok
}

// Default returns the value used when k has no row, or "" for unknown keys.
func (k SettingKey) Default() string {
	if vs := settingValues[k]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Allows reports whether v is an accepted value for k.
func (k SettingKey) Allows(v string) bool {
	for _, allowed := range settingValues[k] {
		if v == allowed {
			return true
		}
	}
	return false
}
