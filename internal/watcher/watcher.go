// Package watcher announces process terminations as they land in the store.
package watcher

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"
)

type Source interface {
	FetchTerminations(ctx context.Context, since time.Time) ([]string, error)
}

type Speaker interface {
	Speak(text string) error
}

// Publisher receives a copy of every announcement, e.g. the event bus.
type Publisher interface {
	Publish(kind, content string) error
}

const EventTermination = "termination"

type Config struct {
	Source    Source
	Speaker   Speaker
	Publisher Publisher // optional
	Start     time.Time
	Now       func() time.Time // defaults to time.Now
}

// Watcher owns the watermark: the lower bound of the next termination poll.
type Watcher struct {
	src       Source
	speaker   Speaker
	pub       Publisher
	now       func() time.Time
	watermark time.Time
}

func New(cfg Config) *Watcher {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	start := cfg.Start
	if start.IsZero() {
		start = now()
	}
	return &Watcher{
		src:       cfg.Source,
		speaker:   cfg.Speaker,
		pub:       cfg.Publisher,
		now:       now,
		watermark: start,
	}
}

func (w *Watcher) Watermark() time.Time { return w.watermark }

// Poll checks for terminations since the current watermark and moves the
// watermark forward when something was announced.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	next, announced, err := w.CheckTerminations(ctx, w.watermark)
	if err != nil {
		return false, err
	}
	w.watermark = next
	return announced, nil
}

// CheckTerminations announces every process terminated at or after since.
// With no matches it returns since unchanged, so a termination written
// between this query and the next one is never skipped. Otherwise it
// returns the current time.
func (w *Watcher) CheckTerminations(ctx context.Context, since time.Time) (time.Time, bool, error) {
	names, err := w.src.FetchTerminations(ctx, since)
	if err != nil {
		return since, false, err
	}
	if len(names) == 0 {
		return since, false, nil
	}

	text := Announcement(names)
	log.Info("Processes terminated", "processes", names, "since", since)

	if err := w.speaker.Speak(text); err != nil {
		log.Error("Failed to voice out termination", "err", err)
	}
	if w.pub != nil {
		if err := w.pub.Publish(EventTermination, text); err != nil {
			log.Warn("Failed to publish termination", "err", err)
		}
	}

	return w.now(), true, nil
}

// Announcement is the sentence spoken for a set of terminated processes.
func Announcement(names []string) string {
	if len(names) == 1 {
		return fmt.Sprintf("Heads up, the process named '%s' has terminated.", names[0])
	}
	return fmt.Sprintf("Heads up, processes '%s' have terminated.", strings.Join(names, ", "))
}
