package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/model"
)

func scheduleQuery(id int64) url.Values {
	return url.Values{"scheduleId": []string{strconv.FormatInt(id, 10)}}
}

// ListSchedules returns every schedule visible to the current pair.
func (c *Client) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	var records []ScheduleRecord
	if err := c.do(ctx, http.MethodGet, "/schedules", nil, nil, &records); err != nil {
		return nil, err
	}

	schedules := make([]model.Schedule, 0, len(records))
	for _, r := range records {
		s, err := r.Schedule()
		if err != nil {
			// One malformed record should not hide the rest of the calendar.
			log.Error("skip malformed schedule", err, "id", r.ID)
			continue
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

// GetSchedule fetches a single schedule's full record.
func (c *Client) GetSchedule(ctx context.Context, id int64) (*model.Schedule, error) {
	var record *ScheduleRecord
	if err := c.do(ctx, http.MethodGet, "/schedules/detail", scheduleQuery(id), nil, &record); err != nil {
		return nil, err
	}
	return toSchedule("GET /api/v1/schedules/detail", record)
}

// CreateSchedule posts a new schedule. The input is sent as given; callers
// validate and normalize first.
func (c *Client) CreateSchedule(ctx context.Context, in model.ScheduleInput) (*model.Schedule, error) {
	var record *ScheduleRecord
	if err := c.do(ctx, http.MethodPost, "/schedules", nil, NewScheduleRequest(in), &record); err != nil {
		return nil, err
	}
	return toSchedule("POST /api/v1/schedules", record)
}

// UpdateSchedule patches schedule id. A 200 without a record is accepted
// and returns nil.
func (c *Client) UpdateSchedule(ctx context.Context, id int64, in model.ScheduleInput) (*model.Schedule, error) {
	var record *ScheduleRecord
	if err := c.do(ctx, http.MethodPatch, "/schedules", scheduleQuery(id), NewScheduleRequest(in), &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return toSchedule("PATCH /api/v1/schedules", record)
}

func (c *Client) DeleteSchedule(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/schedules", scheduleQuery(id), nil, nil)
}

func toSchedule(op string, r *ScheduleRecord) (*model.Schedule, error) {
	if r == nil {
		return nil, &Error{Kind: KindDecode, Op: op, Status: http.StatusOK, Err: errNoData}
	}
	s, err := r.Schedule()
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: op, Status: http.StatusOK, Err: fmt.Errorf("convert record: %w", err)}
	}
	return &s, nil
}
