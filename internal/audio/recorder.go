package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = time.Second * frameSize / SampleRate

	silenceThreshRMS = 0.015
)

type listenTimeout struct{}

func (listenTimeout) Error() string { return "listen timeout: no speech detected" }
func (listenTimeout) Timeout() bool { return true }

// ErrListenTimeout is returned when nobody starts speaking within the
// listen window. It reports Timeout() == true like net errors do.
var ErrListenTimeout error = listenTimeout{}

type Recorder struct {
	// Pause is how much trailing silence ends a question capture.
	Pause time.Duration
	// PhraseLimit caps a trigger phrase recording.
	PhraseLimit time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		Pause:       time.Second,
		PhraseLimit: 4 * time.Second,
	}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

type window struct {
	startTimeout time.Duration // 0 = wait forever for speech
	phraseLimit  time.Duration // 0 = no limit
	pause        time.Duration
}

// Listen records a short phrase. It gives up with ErrListenTimeout when no
// speech starts within timeout.
func (r *Recorder) Listen(ctx context.Context, timeout time.Duration) ([]float32, error) {
	return r.record(ctx, window{
		startTimeout: timeout,
		phraseLimit:  r.PhraseLimit,
		pause:        600 * time.Millisecond,
	})
}

// Capture records one utterance with no start timeout and no length limit;
// it ends after Pause of silence.
func (r *Recorder) Capture(ctx context.Context) ([]float32, error) {
	return r.record(ctx, window{pause: r.Pause})
}

func (r *Recorder) record(ctx context.Context, w window) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
		waited        time.Duration
		spoken        time.Duration
	)

	pauseFrames := int(w.pause / frameDur)
	if pauseFrames < 1 {
		pauseFrames = 1
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if !speaking {
			if frameRMS(buf) <= silenceThreshRMS {
				waited += frameDur
				if w.startTimeout > 0 && waited >= w.startTimeout {
					return nil, ErrListenTimeout
				}
				continue
			}
			speaking = true
		}

		out = append(out, buf...)
		spoken += frameDur

		if frameRMS(buf) > silenceThreshRMS {
			silenceFrames = 0
		} else {
			silenceFrames++
			if silenceFrames >= pauseFrames {
				break
			}
		}

		if w.phraseLimit > 0 && spoken >= w.phraseLimit {
			break
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
