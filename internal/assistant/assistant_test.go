package assistant

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"runvox/internal/console"
	"runvox/internal/models"
	"runvox/internal/store"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "no speech" }
func (timeoutErr) Timeout() bool { return true }

// recorder collects the order in which collaborators are called.
type recorder struct {
	calls []string
}

func (r *recorder) add(call string) { r.calls = append(r.calls, call) }

type listenResult struct {
	pcm []float32
	err error
}

type fakeMic struct {
	rec      *recorder
	listens  []listenResult
	captures []listenResult
}

func (m *fakeMic) Listen(context.Context, time.Duration) ([]float32, error) {
	m.rec.add("listen")
	if len(m.listens) == 0 {
		return nil, timeoutErr{}
	}
	r := m.listens[0]
	m.listens = m.listens[1:]
	return r.pcm, r.err
}

func (m *fakeMic) Capture(context.Context) ([]float32, error) {
	m.rec.add("capture")
	if len(m.captures) == 0 {
		return nil, errors.New("no capture scripted")
	}
	r := m.captures[0]
	m.captures = m.captures[1:]
	return r.pcm, r.err
}

type transcribeResult struct {
	text string
	err  error
}

type fakeTranscriber struct {
	results []transcribeResult
}

func (f *fakeTranscriber) Transcribe(context.Context, []float32) (string, error) {
	if len(f.results) == 0 {
		return "", nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.text, r.err
}

type fakeStore struct {
	rec      *recorder
	sessions []models.ProcessSession
	items    []models.WorkItem
	err      error
	closed   int
}

func (s *fakeStore) FetchSessions(context.Context, time.Time) ([]models.ProcessSession, error) {
	s.rec.add("sessions")
	return s.sessions, s.err
}

func (s *fakeStore) FetchItems(context.Context, time.Time) ([]models.WorkItem, error) {
	s.rec.add("items")
	return s.items, s.err
}

func (s *fakeStore) Close() error {
	s.closed++
	return nil
}

type fakeAI struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeAI) Answer(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeSpeaker struct {
	rec  *recorder
	said []string
}

func (f *fakeSpeaker) Speak(text string) error {
	f.rec.add("speak")
	f.said = append(f.said, text)
	return nil
}

type fakeWatcher struct {
	rec *recorder
	err error
}

func (f *fakeWatcher) Poll(context.Context) (bool, error) {
	f.rec.add("poll")
	return false, f.err
}

type harness struct {
	rec     *recorder
	mic     *fakeMic
	tr      *fakeTranscriber
	store   *fakeStore
	ai      *fakeAI
	speaker *fakeSpeaker
	watcher *fakeWatcher
	out     *bytes.Buffer
}

func newHarness() *harness {
	rec := &recorder{}
	return &harness{
		rec:     rec,
		mic:     &fakeMic{rec: rec},
		tr:      &fakeTranscriber{},
		store:   &fakeStore{rec: rec},
		ai:      &fakeAI{reply: "Invoice Bot is running."},
		speaker: &fakeSpeaker{rec: rec},
		watcher: &fakeWatcher{rec: rec},
		out:     &bytes.Buffer{},
	}
}

func (h *harness) assistant(commands <-chan string) *Assistant {
	return New(Config{
		Mic:           h.mic,
		Transcriber:   h.tr,
		Store:         h.store,
		AI:            h.ai,
		Speaker:       h.speaker,
		Watcher:       h.watcher,
		Console:       console.New(h.out),
		Commands:      commands,
		Phrases:       Phrases{Trigger: "hey", Stop: "exit"},
		ListenTimeout: time.Second,
		Now:           func() time.Time { return time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC) },
	})
}

var speech = []float32{0.2, -0.2, 0.3}

func (h *harness) say(texts ...string) {
	for _, t := range texts {
		h.mic.listens = append(h.mic.listens, listenResult{pcm: speech})
		h.tr.results = append(h.tr.results, transcribeResult{text: t})
	}
}

func (h *harness) ask(question string) {
	h.mic.captures = append(h.mic.captures, listenResult{pcm: speech})
	h.tr.results = append(h.tr.results, transcribeResult{text: question})
}

func TestNormalizeTrimsOnlyTheEdges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"  Hey. ", "hey"},
		{"¿Exit?", "exit"},
		{"What's (Invoices) doing?", "what's (invoices) doing"},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	p := Phrases{Trigger: "hey", Stop: "exit"}
	tests := []struct {
		in   string
		want Event
	}{
		{"hey", EventTrigger},
		{"  Hey ", EventTrigger},
		{"Hey.", EventTrigger},
		{"HEY!", EventTrigger},
		{"exit", EventStop},
		{" Exit.", EventStop},
		{"hey there", EventNone},
		{"exit now", EventNone},
		{"they", EventNone},
		{"", EventNone},
		{"...", EventNone},
	}
	for _, tt := range tests {
		if got := p.Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTriggerAnswersQuestion(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.sessions = []models.ProcessSession{{
		ProcessName: "Invoice Bot",
		Status:      models.StatusRunning,
		StartTime:   time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC),
	}}
	h.say("hey")
	h.ask("what processes are running")

	a := h.assistant(nil)
	if got := a.Step(context.Background()); got != Idle {
		t.Fatalf("expected Idle after a turn, got %v", got)
	}

	if len(h.ai.prompts) != 1 {
		t.Fatalf("expected one AI call, got %d", len(h.ai.prompts))
	}
	p := h.ai.prompts[0]
	for _, want := range []string{"Invoice Bot", "Running", "what processes are running", "2026-10-16"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if len(h.speaker.said) != 1 || h.speaker.said[0] != "Invoice Bot is running." {
		t.Fatalf("expected the reply spoken once, got %v", h.speaker.said)
	}

	want := []string{"poll", "listen", "capture", "sessions", "items", "speak"}
	if strings.Join(h.rec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("call order = %v, want %v", h.rec.calls, want)
	}

	out := h.out.String()
	if !strings.Contains(out, "what processes are running") || !strings.Contains(out, "Invoice Bot is running.") {
		t.Fatalf("console missing question or response:\n%s", out)
	}
}

func TestStopPhraseEndsRunAndClosesStore(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.say("Exit")

	a := h.assistant(nil)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if a.State() != Terminated {
		t.Fatalf("expected Terminated, got %v", a.State())
	}
	if len(h.speaker.said) != 1 || h.speaker.said[0] != DefaultFarewell {
		t.Fatalf("expected farewell spoken once, got %v", h.speaker.said)
	}
	if h.store.closed != 1 {
		t.Fatalf("expected store closed once, got %d", h.store.closed)
	}
	if len(h.ai.prompts) != 0 {
		t.Fatal("stop phrase must not call the model")
	}
}

func TestEmptyQuestionSkipsAnswer(t *testing.T) {
	t.Parallel()

	for _, question := range []string{"", "   ", "[BLANK_AUDIO]", " (wind blowing) "} {
		h := newHarness()
		h.say("hey")
		h.ask(question)

		a := h.assistant(nil)
		if got := a.Step(context.Background()); got != Idle {
			t.Fatalf("%q: expected Idle, got %v", question, got)
		}
		if len(h.ai.prompts) != 0 {
			t.Fatalf("%q: expected no AI call", question)
		}
		if len(h.speaker.said) != 0 {
			t.Fatalf("%q: expected no speech, got %v", question, h.speaker.said)
		}
	}
}

func TestOtherPhrasesStayIdle(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.say("hello there")

	a := h.assistant(nil)
	if got := a.Step(context.Background()); got != Idle {
		t.Fatalf("expected Idle, got %v", got)
	}
	for _, c := range h.rec.calls {
		if c == "capture" {
			t.Fatal("non-trigger phrase must not start a capture")
		}
	}
}

func TestFailuresNeverStopTheLoop(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.watcher.err = &store.Error{Op: "fetch terminations", Err: errors.New("connection reset")}

	// listen timeout, listen failure, recognizer failure
	h.mic.listens = append(h.mic.listens,
		listenResult{err: timeoutErr{}},
		listenResult{err: errors.New("device busy")},
		listenResult{pcm: speech},
	)
	h.tr.results = append(h.tr.results, transcribeResult{err: errors.New("recognizer crashed")})

	// store failure during a turn
	h.store.err = &store.Error{Op: "fetch sessions", Err: errors.New("login failed")}
	h.say("hey")
	h.ask("how many items failed")

	a := h.assistant(nil)
	for i := range 4 {
		if got := a.Step(context.Background()); got != Idle {
			t.Fatalf("step %d: expected Idle, got %v", i, got)
		}
	}
	if len(h.speaker.said) != 0 {
		t.Fatalf("failures must never be spoken, got %v", h.speaker.said)
	}

	// model failure
	h.store.err = nil
	h.ai.err = errors.New("quota exceeded")
	h.say("hey")
	h.ask("how many items failed")
	if got := a.Step(context.Background()); got != Idle {
		t.Fatalf("expected Idle after AI failure, got %v", got)
	}
	if len(h.speaker.said) != 0 {
		t.Fatalf("AI failure must not be spoken, got %v", h.speaker.said)
	}

	h.say("exit")
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.store.closed != 1 {
		t.Fatalf("expected store closed, got %d", h.store.closed)
	}
}

func TestStoreErrorDuringTurn(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.err = &store.Error{Op: "fetch sessions", Err: errors.New("timeout")}
	h.say("hey")
	h.ask("what is running")

	a := h.assistant(nil)
	if got := a.Step(context.Background()); got != Idle {
		t.Fatalf("expected Idle, got %v", got)
	}
	if len(h.ai.prompts) != 0 {
		t.Fatal("expected no AI call when the snapshot fails")
	}
}

func TestControlCommands(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.ask("what is running")

	cmds := make(chan string, 3)
	cmds <- CommandTrigger
	cmds <- "reboot"
	cmds <- CommandStop

	a := h.assistant(cmds)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, c := range h.rec.calls {
		if c == "listen" {
			t.Fatal("pending commands must be served before listening")
		}
	}
	if len(h.ai.prompts) != 1 {
		t.Fatalf("expected one answered question, got %d", len(h.ai.prompts))
	}
	if len(h.speaker.said) != 2 || h.speaker.said[1] != DefaultFarewell {
		t.Fatalf("expected answer then farewell, got %v", h.speaker.said)
	}
}

func TestRunClosesStoreOnCancel(t *testing.T) {
	t.Parallel()

	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := h.assistant(nil)
	if err := a.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if h.store.closed != 1 {
		t.Fatalf("expected store closed, got %d", h.store.closed)
	}
}

func TestTranscribeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		pcm  []float32
		res  transcribeResult
		want TranscriptStatus
		text string
	}{
		{"no audio", nil, transcribeResult{text: "hey"}, TranscriptEmpty, ""},
		{"error", speech, transcribeResult{err: errors.New("boom")}, TranscriptFailed, ""},
		{"blank", speech, transcribeResult{text: " [BLANK_AUDIO] "}, TranscriptEmpty, ""},
		{"text", speech, transcribeResult{text: " What is  running? "}, TranscriptOK, "What is running?"},
		{"marker stripped", speech, transcribeResult{text: "[MUSIC] hey"}, TranscriptOK, "hey"},
		{"noise caption", speech, transcribeResult{text: " (wind blowing) "}, TranscriptEmpty, ""},
		{"captions only", speech, transcribeResult{text: "(music) [BLANK_AUDIO] (applause)"}, TranscriptEmpty, ""},
		{
			"parenthesised words kept", speech,
			transcribeResult{text: "how many items failed in the (Invoices) queue"},
			TranscriptOK, "how many items failed in the (Invoices) queue",
		},
	}
	for _, tt := range tests {
		tr := &fakeTranscriber{results: []transcribeResult{tt.res}}
		got := transcribe(context.Background(), tr, tt.pcm)
		if got.Status != tt.want || got.Text != tt.text {
			t.Errorf("%s: got (%v, %q), want (%v, %q)", tt.name, got.Status, got.Text, tt.want, tt.text)
		}
	}
}

func TestAskGroundsPromptOnSnapshot(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	st := &fakeStore{rec: rec, sessions: []models.ProcessSession{{ProcessName: "Invoice Bot", Status: models.StatusRunning}}}
	ai := &fakeAI{reply: "Invoice Bot is running."}
	today := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

	reply, err := Ask(context.Background(), st, ai, "what is running", today)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if reply != "Invoice Bot is running." {
		t.Fatalf("reply = %q", reply)
	}
	if len(ai.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(ai.prompts))
	}
	p := ai.prompts[0]
	for _, want := range []string{"2026-10-16", "Invoice Bot", "what is running"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	st.err = &store.Error{Op: "sessions", Err: errors.New("down")}
	ai.prompts = nil
	if _, err := Ask(context.Background(), st, ai, "anything", today); err == nil {
		t.Fatal("expected store error")
	}
	if len(ai.prompts) != 0 {
		t.Fatal("model must not be called when the snapshot fails")
	}
}
