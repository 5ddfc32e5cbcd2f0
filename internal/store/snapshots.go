package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/model"
)

// SaveSchedules replaces the schedule snapshot with list.
func (s *Store) SaveSchedules(list []model.Schedule, fetchedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schedule snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM schedules`); err != nil {
		return fmt.Errorf("clear schedules: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO schedules
		(id, title, content, location, start_time, end_time, is_all_day, category_id, weather)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare schedule insert: %w", err)
	}
	defer stmt.Close()

	for _, sc := range list {
		var end *string
		if sc.EndTime != nil {
			v := datetime.Format(*sc.EndTime)
			end = &v
		}
		_, err := stmt.Exec(sc.ID, sc.Title, sc.Content, sc.Location,
			datetime.Format(sc.StartTime), end, sc.IsAllDay, sc.CategoryID, string(sc.Weather))
		if err != nil {
			return fmt.Errorf("insert schedule %d: %w", sc.ID, err)
		}
	}

	if err := markSnapshot(tx, KindSchedules, fetchedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadSchedules returns the schedule snapshot. fetchedAt is zero when no
// snapshot was ever saved.
func (s *Store) LoadSchedules() ([]model.Schedule, time.Time, error) {
	fetchedAt, err := s.SnapshotTime(KindSchedules)
	if err != nil || fetchedAt.IsZero() {
		return nil, fetchedAt, err
	}

	rows, err := s.db.Query(`SELECT id, title, content, location, start_time, end_time, is_all_day, category_id, weather
		FROM schedules ORDER BY start_time, id`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list cached schedules: %w", err)
	}
	defer rows.Close()

	var list []model.Schedule
	for rows.Next() {
		var (
			sc       model.Schedule
			start    string
			end      sql.NullString
			category sql.NullInt64
			weather  string
		)
		if err := rows.Scan(&sc.ID, &sc.Title, &sc.Content, &sc.Location, &start, &end,
			&sc.IsAllDay, &category, &weather); err != nil {
			return nil, time.Time{}, err
		}
		if sc.StartTime, err = datetime.Parse(start); err != nil {
			return nil, time.Time{}, fmt.Errorf("cached schedule %d: %w", sc.ID, err)
		}
		if end.Valid {
			t, err := datetime.Parse(end.String)
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("cached schedule %d: %w", sc.ID, err)
			}
			sc.EndTime = &t
		}
		if category.Valid {
			id := category.Int64
			sc.CategoryID = &id
		}
		sc.Weather = model.Weather(weather)
		list = append(list, sc)
	}
	return list, fetchedAt, rows.Err()
}

// SaveCategories replaces the category snapshot with list.
func (s *Store) SaveCategories(list []model.Category, fetchedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin category snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM categories`); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for _, c := range list {
		_, err := tx.Exec(`INSERT INTO categories (id, name, color, category_type) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, string(c.Color), string(c.Type))
		if err != nil {
			return fmt.Errorf("insert category %d: %w", c.ID, err)
		}
	}

	if err := markSnapshot(tx, KindCategories, fetchedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadCategories returns the category snapshot ordered by id.
func (s *Store) LoadCategories() ([]model.Category, time.Time, error) {
	fetchedAt, err := s.SnapshotTime(KindCategories)
	if err != nil || fetchedAt.IsZero() {
		return nil, fetchedAt, err
	}

	rows, err := s.db.Query(`SELECT id, name, color, category_type FROM categories ORDER BY id`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list cached categories: %w", err)
	}
	defer rows.Close()

	var list []model.Category
	for rows.Next() {
		var c model.Category
		var color, typ string
		if err := rows.Scan(&c.ID, &c.Name, &color, &typ); err != nil {
			return nil, time.Time{}, err
		}
		c.Color = model.Color(color)
		c.Type = model.CategoryType(typ)
		list = append(list, c)
	}
	return list, fetchedAt, rows.Err()
}

// SnapshotTime returns when kind was last saved, or the zero time.
func (s *Store) SnapshotTime(kind string) (time.Time, error) {
	var raw string
	err := s.db.QueryRow(`SELECT fetched_at FROM snapshots WHERE kind = ?`, kind).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read snapshot time %q: %w", kind, err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snapshot time %q: %w", kind, err)
	}
	return t, nil
}

func markSnapshot(tx *sql.Tx, kind string, fetchedAt time.Time) error {
	_, err := tx.Exec(
		`INSERT INTO snapshots (kind, fetched_at) VALUES (?, ?) ON CONFLICT(kind) DO UPDATE SET fetched_at = excluded.fetched_at`,
		kind, fetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("mark %s snapshot: %w", kind, err)
	}
	return nil
}
