package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/model"
)

// Adder submits one schedule. schedule.Store satisfies it.
type Adder interface {
	Add(ctx context.Context, in model.ScheduleInput) (*model.Schedule, error)
}

// Result summarizes an import run.
type Result struct {
	Created []model.Schedule
	Failed  []error
}

// Submit adds every input in order. A failed submission is recorded and
// the rest continue; there is no retry.
func Submit(ctx context.Context, adder Adder, inputs []model.ScheduleInput) Result {
	var res Result
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, err)
			break
		}
		created, err := adder.Add(ctx, in)
		if err != nil {
			log.Error("import schedule", err, "title", in.Title)
			res.Failed = append(res.Failed, fmt.Errorf("%q: %w", in.Title, err))
			continue
		}
		res.Created = append(res.Created, *created)
	}
	log.Info("import finished", "created", len(res.Created), "failed", len(res.Failed))
	return res
}

// Import parses r, expands it over w and submits the result.
func Import(ctx context.Context, adder Adder, r io.Reader, w Window, categoryID *int64) (Result, error) {
	events, err := Parse(r)
	if err != nil {
		return Result{}, err
	}
	inputs, err := Expand(events, w, categoryID)
	if err != nil {
		return Result{}, err
	}
	return Submit(ctx, adder, inputs), nil
}
