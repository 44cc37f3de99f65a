package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"

	"github.com/pulsepoll/pulsepoll/internal/app"
	"github.com/pulsepoll/pulsepoll/internal/auth"
	"github.com/pulsepoll/pulsepoll/internal/config"
	"github.com/pulsepoll/pulsepoll/internal/services"
	"github.com/pulsepoll/pulsepoll/utils"
)

func main() {
	fmt.Println(color.New(color.FgHiMagenta).Add(color.Bold).Sprint("PulsePoll"))
	fmt.Println("Local real-time polling and habit dashboard demo")
	color.HiBlack("=====================================================")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/local.yaml"
	}
	cfg := config.Load(configPath)
	log := utils.New(cfg.Env)

	application := app.New(log, cfg)
	defer application.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Process-wide expiry sweep, independent of any open view.
	quartz := cron.New()
	quartz.AddFunc("@every 1s", func() {
		if err := application.Lifecycle.Tick(ctx); err != nil {
			log.Error("expiry sweep failed", utils.Err(err))
		}
	})
	quartz.Start()
	defer quartz.Stop()

	if err := runDemo(ctx, application); err != nil {
		log.Error("demo session failed", utils.Err(err))
		os.Exit(1)
	}
}

// runDemo plays one full poll session: an admin launches a poll, two
// participants join by code and vote, the admin watches live results, then
// ends the poll and reviews history.
func runDemo(ctx context.Context, application *app.App) error {
	admin, err := application.Auth.Login(ctx, "admin@pulsepoll.local", "demo")
	if err != nil {
		return err
	}

	poll, err := application.Lifecycle.Launch(ctx, services.LaunchInput{
		Question:        "What should the next team activity be?",
		Options:         []string{"Board games", "Hiking", "Cooking class"},
		DurationMinutes: 1,
		OwnerID:         admin.Identity(),
	})
	if err != nil {
		return err
	}
	color.Green("Poll launched. Session code: %s", poll.SessionCode)

	updates := application.Watcher.Watch(ctx, poll)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			switch u.Event {
			case services.EventResults:
				fmt.Printf("  live tally %v (%.0fs left)\n", u.Poll.Results, u.Remaining.Seconds())
			case services.EventExpired:
				color.Yellow("  poll timed out, final tally %v", u.Poll.Results)
			case services.EventClosedExternally:
				color.Yellow("  poll closed, final tally %v", u.Poll.Results)
			case services.EventReplaced:
				color.Yellow("  another poll took over the session")
			}
		}
	}()

	for _, vote := range []struct {
		identity string
		option   string
	}{
		{auth.GuestIdentity(), "Board games"},
		{auth.GuestIdentity(), "Hiking"},
	} {
		joined, err := application.Ballots.JoinByCode(ctx, poll.SessionCode, vote.identity)
		if err != nil {
			return err
		}
		if err := application.Ballots.CastVote(ctx, joined.Poll.ID, vote.identity, vote.option); err != nil {
			return err
		}
		time.Sleep(1500 * time.Millisecond)
	}

	if _, _, err := application.Progress.CheckIn(ctx, admin.Identity(), "energized", "poll night!"); err != nil {
		return err
	}

	if err := application.Lifecycle.End(ctx, false); err != nil {
		return err
	}
	<-done

	history, err := application.Lifecycle.History(ctx, admin.Identity())
	if err != nil {
		return err
	}
	for _, past := range history {
		fmt.Printf("history: %q (%s) %v\n", past.Question, past.SessionCode, past.Results)
	}
	return nil
}
