package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sadopc/duet/internal/api"
	"github.com/sadopc/duet/internal/category"
	"github.com/sadopc/duet/internal/config"
	"github.com/sadopc/duet/internal/datetime"
	"github.com/sadopc/duet/internal/events"
	"github.com/sadopc/duet/internal/importer"
	"github.com/sadopc/duet/internal/log"
	"github.com/sadopc/duet/internal/schedule"
	"github.com/sadopc/duet/internal/store"
	"github.com/sadopc/duet/internal/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	time.Local = loc

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.LogFile, "duet")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	token := cfg.Token
	if token == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		if token, err = promptForToken("API token (empty for none): "); err != nil {
			return fmt.Errorf("read token: %w", err)
		}
	}

	st, err := store.New(cfg.CachePath)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer st.Close()

	if _, err := st.GetSetting(store.SettingWeekStart); err != nil {
		if err := st.SetSetting(store.SettingWeekStart, cfg.WeekStart); err != nil {
			log.Error("seed week start", err)
		}
	}

	client := api.NewClient(cfg.BaseURL, token, api.WithTimeout(cfg.Timeout))
	schedules := schedule.New(client, events.NewBus(), schedule.WithSnapshotter(st))
	categories := category.New(client, category.WithSnapshotter(st))
	if err := schedules.Restore(); err != nil {
		log.Error("restore schedules", err)
	}
	if err := categories.Restore(); err != nil {
		log.Error("restore categories", err)
	}

	if len(args) > 0 && args[0] == "import" {
		return runImport(args[1:], schedules, categories)
	}

	log.Info("starting", "base_url", cfg.BaseURL, "auth", token != "")
	app := tui.NewApp(schedules, categories, st)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func promptForToken(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return strings.TrimSpace(string(pass)), err
}

// runImport handles `duet import [-category NAME] [-months N] FILE.ics`.
func runImport(args []string, schedules *schedule.Store, categories *category.Registry) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	catName := fs.String("category", "", "assign imported schedules to this category")
	months := fs.Int("months", 12, "expand recurring events this many months ahead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: duet import [-category NAME] [-months N] FILE.ics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var categoryID *int64
	if *catName != "" {
		if err := categories.Fetch(ctx); err != nil {
			return fmt.Errorf("load categories: %s", api.UserMessage(err))
		}
		for _, c := range categories.Categories() {
			if strings.EqualFold(c.Name, *catName) {
				id := c.ID
				categoryID = &id
				break
			}
		}
		if categoryID == nil {
			return fmt.Errorf("no category named %q", *catName)
		}
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	today := datetime.StartOfDay(time.Now())
	w := importer.Window{From: today.AddDate(0, -1, 0), To: today.AddDate(0, *months, 0)}
	res, err := importer.Import(ctx, schedules, f, w, categoryID)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d schedules\n", len(res.Created))
	for _, e := range res.Failed {
		fmt.Fprintf(os.Stderr, "  failed: %s\n", api.UserMessage(e))
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d schedules were not imported", len(res.Failed))
	}
	return nil
}
