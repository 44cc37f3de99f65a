package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pulsepoll/pulsepoll/internal/entity"
	"github.com/pulsepoll/pulsepoll/internal/repo"
	"github.com/pulsepoll/pulsepoll/utils"
)

type Event string

const (
	// EventResults is a routine refresh: merged tally plus countdown.
	EventResults Event = "results"
	// EventExpired means this watcher saw the deadline pass and triggered
	// the ending transition itself.
	EventExpired Event = "expired"
	// EventClosedExternally means the shared record vanished or flipped
	// inactive while this view still believed the poll was running.
	EventClosedExternally Event = "closed_externally"
	// EventReplaced means the slot now holds a different poll; this view's
	// poll has concluded as far as it is concerned.
	EventReplaced Event = "replaced"
)

// Update is one observation of the shared poll state.
type Update struct {
	Poll      entity.Poll
	Remaining time.Duration
	Event     Event
}

// Watcher re-reads the shared active-poll record on a fixed cadence for one
// open view. Every view runs its own watcher; there is no coordination
// between them beyond the record itself.
type Watcher struct {
	log       *slog.Logger
	slot      PollSlot
	lifecycle *Lifecycle
	interval  time.Duration
	now       func() time.Time
}

func NewWatcher(log *slog.Logger, slot PollSlot, lifecycle *Lifecycle, interval time.Duration) *Watcher {
	return &Watcher{
		log:       log,
		slot:      slot,
		lifecycle: lifecycle,
		interval:  interval,
		now:       time.Now,
	}
}

// Watch observes the given poll until the context is canceled or the poll
// reaches a terminal state. The returned channel closes after the last
// update; Expired, ClosedExternally and Replaced are terminal.
func (w *Watcher) Watch(ctx context.Context, poll entity.Poll) <-chan Update {
	updates := make(chan Update, 1)

	log := w.log.With(
		slog.String("op", "watch.Watch"),
		slog.String("viewID", uuid.NewString()),
		slog.Int64("pollID", poll.ID))

	go w.run(ctx, log, poll, updates)
	return updates
}

func (w *Watcher) run(ctx context.Context, log *slog.Logger, local entity.Poll, updates chan<- Update) {
	defer close(updates)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current, err := w.slot.ActivePoll()
		if err != nil {
			if errors.Is(err, repo.ErrActivePollNotFound) {
				if local.IsActive {
					local.IsActive = false
					w.send(ctx, updates, Update{Poll: local, Event: EventClosedExternally})
					log.Info("poll closed externally")
				}
				return
			}
			log.Error("failed to read active poll", utils.Err(err))
			continue
		}

		if current.ID != local.ID {
			local.IsActive = false
			w.send(ctx, updates, Update{Poll: local, Event: EventReplaced})
			log.Info("active slot replaced by another poll", slog.Int64("newPollID", current.ID))
			return
		}

		local.Results = current.Results
		left := remaining(current, w.now())

		if !current.IsActive {
			w.send(ctx, updates, Update{Poll: current, Event: EventClosedExternally})
			log.Info("poll marked inactive externally")
			return
		}

		if current.EndsAt != nil && left == 0 {
			// Every observer races to end an expired poll; End is idempotent
			// so losing the race is fine.
			if err := w.lifecycle.End(ctx, true); err != nil {
				log.Error("failed to end expired poll", utils.Err(err))
			}
			now := w.now()
			local = current
			local.IsActive = false
			local.EndedAt = &now
			w.send(ctx, updates, Update{Poll: local, Event: EventExpired})
			log.Info("poll expired")
			return
		}

		local = current
		w.send(ctx, updates, Update{Poll: local, Remaining: left, Event: EventResults})
	}
}

func (w *Watcher) send(ctx context.Context, updates chan<- Update, u Update) {
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}
