// Command duet-devserver runs the in-memory schedule backend for local
// development of the TUI.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/devserver"
	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/model"
)

type envCfg struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	Token    string `envconfig:"TOKEN"`
	Seed     bool   `envconfig:"SEED" default:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg envCfg
	if err := envconfig.Process("DUET_DEV", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	srv := devserver.New(cfg.Token)
	if cfg.Seed {
		seed(srv, time.Now())
	}

	log.Info("dev server listening", "addr", cfg.Addr, "auth", cfg.Token != "")
	if err := srv.Handler().Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("dev server stopped", err)
		os.Exit(1)
	}
}

// seed fills the current week with a few sample schedules.
func seed(srv *devserver.Server, now time.Time) {
	work := srv.SeedCategory("Work", model.ColorBlue)
	date := srv.SeedCategory("Date night", model.ColorRed)

	day := datetime.StartOfDay(now)
	standupEnd := day.Add(9*time.Hour + 15*time.Minute)
	srv.SeedSchedule(model.Schedule{
		Title:      "Standup",
		StartTime:  day.Add(9 * time.Hour),
		EndTime:    &standupEnd,
		CategoryID: &work.ID,
	})

	dinner := day.AddDate(0, 0, 2).Add(19 * time.Hour)
	srv.SeedSchedule(model.Schedule{
		Title:      "Dinner",
		Location:   "Trattoria",
		StartTime:  dinner,
		CategoryID: &date.ID,
		Weather:    model.WeatherSunny,
	})

	tripStart, tripEnd := datetime.NormalizeAllDay(day.AddDate(0, 0, 4), ptr(day.AddDate(0, 0, 6)))
	srv.SeedSchedule(model.Schedule{
		Title:     "Weekend trip",
		StartTime: tripStart,
		EndTime:   &tripEnd,
		IsAllDay:  true,
	})
}

func ptr[T any](v T) *T { return &v }
