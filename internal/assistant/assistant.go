// Package assistant runs the listen, trigger, answer loop.
//
// The loop is single threaded: termination polling, listening, answering
// and speaking happen one after the other, so at most one audio activity is
// ever in flight and announcements never talk over an answer.
package assistant

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"time"

	"github.com/google/uuid"

	"runvox/internal/console"
	"runvox/internal/ipc"
	"runvox/internal/models"
	"runvox/internal/prompt"
	"runvox/internal/store"
)

type Microphone interface {
	// Listen records a short phrase, failing with a Timeout() error when
	// nobody speaks within timeout.
	Listen(ctx context.Context, timeout time.Duration) ([]float32, error)
	// Capture records one utterance without any time limit.
	Capture(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type Snapshot interface {
	FetchSessions(ctx context.Context, now time.Time) ([]models.ProcessSession, error)
	FetchItems(ctx context.Context, now time.Time) ([]models.WorkItem, error)
}

// Store is the live snapshot source. The assistant owns it and closes it
// when Run returns.
type Store interface {
	Snapshot
	io.Closer
}

type Answerer interface {
	Answer(ctx context.Context, prompt string) (string, error)
}

type Speaker interface {
	Speak(text string) error
}

// Poller is the termination watcher.
type Poller interface {
	Poll(ctx context.Context) (bool, error)
}

type Publisher interface {
	Publish(kind, content string) error
}

type Cue interface {
	Play() error
}

// Control commands accepted on the Commands channel.
const (
	CommandTrigger = ipc.CommandTrigger
	CommandStop    = ipc.CommandStop
)

const (
	EventAnswer     = "answer"
	DefaultFarewell = "See you later!"
)

type Config struct {
	Mic         Microphone
	Transcriber Transcriber
	Store       Store
	AI          Answerer
	Speaker     Speaker
	Watcher     Poller

	// Optional collaborators.
	Cue         Cue
	Console     *console.Printer
	Publisher   Publisher
	Commands    <-chan string
	SaveCapture func(pcm []float32) error

	Phrases       Phrases
	ListenTimeout time.Duration
	Farewell      string
	Now           func() time.Time
}

type Assistant struct {
	cfg   Config
	state State
	now   func() time.Time
}

func New(cfg Config) *Assistant {
	if cfg.ListenTimeout <= 0 {
		cfg.ListenTimeout = 5 * time.Second
	}
	if cfg.Farewell == "" {
		cfg.Farewell = DefaultFarewell
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Assistant{cfg: cfg, state: Idle, now: now}
}

func (a *Assistant) State() State { return a.state }

// Run loops until the stop phrase is heard or ctx is done. The store is
// closed on every way out.
func (a *Assistant) Run(ctx context.Context) error {
	defer a.release()

	log.Info("Assistant ready", "trigger", a.cfg.Phrases.Trigger, "stop", a.cfg.Phrases.Stop)
	a.cfg.Console.Waiting(a.cfg.Phrases.Trigger, a.cfg.Phrases.Stop)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.Step(ctx) == Terminated {
			return nil
		}
	}
}

// Step runs one Idle iteration: poll for terminations, wait for a command
// and act on it. It returns the state the loop is left in.
func (a *Assistant) Step(ctx context.Context) State {
	a.pollTerminations(ctx)

	switch next(a.waitCommand(ctx)) {
	case Capturing:
		a.state = Capturing
		a.turn(ctx)
		a.state = Idle
		a.cfg.Console.Waiting(a.cfg.Phrases.Trigger, a.cfg.Phrases.Stop)

	case Terminated:
		a.state = Terminated
		log.Info("Stop phrase heard")
		a.cfg.Console.Farewell(a.cfg.Farewell)
		if err := a.cfg.Speaker.Speak(a.cfg.Farewell); err != nil {
			log.Error("Failed to voice out", "err", err)
		}
	}

	return a.state
}

func (a *Assistant) pollTerminations(ctx context.Context) {
	if a.cfg.Watcher == nil {
		return
	}
	if _, err := a.cfg.Watcher.Poll(ctx); err != nil {
		log.Error("Failed to check terminations", "err", err)
	}
}

// waitCommand prefers a pending control command and otherwise listens for
// a spoken phrase.
func (a *Assistant) waitCommand(ctx context.Context) Event {
	select {
	case cmd, ok := <-a.cfg.Commands:
		if ok {
			return command(cmd)
		}
		a.cfg.Commands = nil
	default:
	}

	pcm, err := a.cfg.Mic.Listen(ctx, a.cfg.ListenTimeout)
	if err != nil {
		switch {
		case ctx.Err() != nil:
		case isTimeout(err):
			log.Debug("Waiting...")
		default:
			log.Warn("Failed to listen", "err", err)
		}
		return EventNone
	}

	tr := transcribe(ctx, a.cfg.Transcriber, pcm)
	switch tr.Status {
	case TranscriptFailed:
		log.Warn("Failed to transcribe", "err", tr.Err)
		return EventNone
	case TranscriptEmpty:
		return EventNone
	}

	ev := a.cfg.Phrases.Classify(tr.Text)
	log.Debug("Heard", "text", tr.Text, "trigger", ev == EventTrigger, "stop", ev == EventStop)
	return ev
}

func command(cmd string) Event {
	switch cmd {
	case CommandTrigger:
		return EventTrigger
	case CommandStop:
		return EventStop
	default:
		log.Warn("Unknown command", "cmd", cmd)
		return EventNone
	}
}

// turn captures one question and answers it. Every failure ends the turn
// quietly; nothing here stops the loop.
func (a *Assistant) turn(ctx context.Context) {
	lg := log.With("turn", uuid.NewString())

	if a.cfg.Cue != nil {
		if err := a.cfg.Cue.Play(); err != nil {
			lg.Warn("Failed to play cue", "err", err)
		}
	}
	a.cfg.Console.Ask()
	lg.Info("Starting listening")

	pcm, err := a.cfg.Mic.Capture(ctx)
	if err != nil {
		lg.Error("Failed to record", "err", err)
		return
	}
	lg.Info("Recorded", "samples", len(pcm))

	if a.cfg.SaveCapture != nil {
		if err := a.cfg.SaveCapture(pcm); err != nil {
			lg.Warn("Failed to save capture", "err", err)
		}
	}

	tr := transcribe(ctx, a.cfg.Transcriber, pcm)
	switch tr.Status {
	case TranscriptFailed:
		lg.Error("Failed to transcribe", "err", tr.Err)
		return
	case TranscriptEmpty:
		lg.Info("Nothing recognized")
		return
	}

	lg.Info("Transcribed", "text", tr.Text)
	a.cfg.Console.Heard(tr.Text)

	reply, err := a.answer(ctx, tr.Text)
	if err != nil {
		var serr *store.Error
		if errors.As(err, &serr) {
			lg.Error("Failed to read store", "op", serr.Op, "err", serr.Err)
		} else {
			lg.Error("Failed to call API", "err", err)
		}
		return
	}

	a.cfg.Console.Response(reply)
	if a.cfg.Publisher != nil {
		if err := a.cfg.Publisher.Publish(EventAnswer, reply); err != nil {
			lg.Warn("Failed to publish answer", "err", err)
		}
	}
	if err := a.cfg.Speaker.Speak(reply); err != nil {
		lg.Error("Failed to voice out", "err", err)
	}
}

func (a *Assistant) answer(ctx context.Context, question string) (string, error) {
	return Ask(ctx, a.cfg.Store, a.cfg.AI, question, a.now())
}

// Ask grounds question on a fresh snapshot taken at now and asks the model.
func Ask(ctx context.Context, snap Snapshot, model Answerer, question string, now time.Time) (string, error) {
	sessions, err := snap.FetchSessions(ctx, now)
	if err != nil {
		return "", err
	}
	items, err := snap.FetchItems(ctx, now)
	if err != nil {
		return "", err
	}
	log.Debug("Snapshot loaded", "sessions", len(sessions), "items", len(items))

	return model.Answer(ctx, prompt.Build(question, sessions, items, now))
}

func (a *Assistant) release() {
	if a.cfg.Store == nil {
		return
	}
	if err := a.cfg.Store.Close(); err != nil {
		log.Warn("Failed to close store", "err", err)
		return
	}
	log.Info("Store closed")
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
