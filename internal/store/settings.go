package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadopc/duet/internal/log"
)

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrSettingValue   = errors.New("invalid setting value")
)

func (s *Store) GetSetting(key SettingKey) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, string(key)).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// SettingOrDefault returns the stored value of key, or its default when the
// row is missing or holds a value the key does not accept.
func (s *Store) SettingOrDefault(key SettingKey) string {
	v, err := s.GetSetting(key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return key.Default()
	case err != nil:
		log.Error("read setting", err, "key", string(key))
		return key.Default()
	case !key.Allows(v):
		log.Error("ignore setting", ErrSettingValue, "key", string(key), "value", v)
		return key.Default()
	}
	return v
}

// SetSetting stores value under key. Unknown keys and values the key does
// not accept are rejected.
func (s *Store) SetSetting(key SettingKey, value string) error {
	if !key.Known() {
		return fmt.Errorf("set setting %q: %w", key, ErrUnknownSetting)
	}
	if !key.Allows(value) {
		return fmt.Errorf("set setting %q to %q: %w", key, value, ErrSettingValue)
	}
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		string(key), value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings = append(settings, Setting{Key: SettingKey(key), Value: value})
	}
	return settings, rows.Err()
}
