// Package audio synthesizes the tick, escapement and alert sounds from noise
// and sine sources and streams them to the output device.
package audio

import (
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	applog "focusflow/internal/log"

	"github.com/rs/zerolog"
)

// ErrUnavailable reports that no audio output device could be opened.
var ErrUnavailable = errors.New("audio output unavailable")

const (
	// DefaultSampleRate is the synthesis and output rate.
	DefaultSampleRate = 44100
	// AlertSpacing separates repetitions in an alert sequence.
	AlertSpacing = 150 * time.Millisecond

	defaultMaxVoices = 512
	tickJitter       = 0.03
	escapementJitter = 0.005
)

// Output is a streaming audio device.
type Output interface {
	// Start begins pulling PCM from source.
	Start(source io.Reader) error
	Suspend() error
	Resume() error
	Close() error
}

// OutputFactory opens an Output for interleaved s16le frames.
type OutputFactory func(sampleRate, channels int) (Output, error)

// Config contains runtime options for Engine.
type Config struct {
	SampleRate int
	MaxVoices  int
	Seed       uint64
	Output     OutputFactory
}

type burst struct {
	kind      filterType
	frequency float64
	q         float64
	gain      float64
	attack    float64
	decay     float64
	delay     float64
}

var tickBursts = []burst{
	{kind: highpass, frequency: 4000, q: 1, gain: 0.1, attack: 0.002, decay: 0.04},
	{kind: bandpass, frequency: 1500, q: 10, gain: 0.06, attack: 0.005, decay: 0.06},
	{kind: bandpass, frequency: 450, q: 5, gain: 0.04, attack: 0.01, decay: 0.08},
}

// Impulse pin strike, tooth release, fork lock.
var escapementBursts = []burst{
	{kind: highpass, frequency: 6500, q: 5, gain: 0.07, attack: 0.001, decay: 0.012},
	{kind: bandpass, frequency: 2800, q: 12, gain: 0.04, attack: 0.002, decay: 0.020, delay: 0.008},
	{kind: bandpass, frequency: 1500, q: 4, gain: 0.015, attack: 0.004, decay: 0.028, delay: 0.015},
}

type partial struct {
	ratio, initial, peak, decay float64
}

var alertPartials = []partial{
	{ratio: 1.00, initial: 0.2, peak: 1.0, decay: 3.0},
	{ratio: 2.005, initial: 0.1, peak: 0.6, decay: 2.5},
	{ratio: 3.01, initial: 0.1, peak: 0.4, decay: 2.0},
	{ratio: 1.76, initial: 0.3, peak: 0.1, decay: 0.3},
	{ratio: 4.33, initial: 0.2, peak: 0.05, decay: 0.5},
}

const (
	alertMixGain   = 0.4
	alertBloom     = 0.15
	alertAttack    = 0.01
	alertTail      = 0.1
	alertNoiseLen  = 0.05
	alertNoisePeak = 0.4
)

type engineState int

const (
	stateSuspended engineState = iota
	stateRunning
	stateUnavailable
	stateClosed
)

// Engine owns the signal graph and output device. Both are created on first
// use. Without a device every call is a no-op.
type Engine struct {
	mu      sync.Mutex
	config  Config
	state   engineState
	mixer   *Mixer
	output  Output
	rng     *rand.Rand
	started bool
	logger  zerolog.Logger
}

// NewEngine creates a suspended Engine. No device is opened until first use.
func NewEngine(config Config) *Engine {
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.MaxVoices <= 0 {
		config.MaxVoices = defaultMaxVoices
	}
	if config.Output == nil {
		config.Output = NewOtoOutput
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Engine{
		config: config,
		state:  stateSuspended,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger: applog.WithComponent("audio"),
	}
}

// Resume opens the device if needed and resumes output.
func (engine *Engine) Resume() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.ensureLocked()
}

// Suspend pauses the output device. Scheduled voices keep their audio times.
func (engine *Engine) Suspend() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.state != stateRunning {
		return
	}
	if err := engine.output.Suspend(); err != nil {
		engine.logger.Debug().Err(err).Str("event", "audio.suspend_failed").Msg("failed to suspend output")
		return
	}
	engine.state = stateSuspended
}

// CurrentTime returns the audio clock in seconds, or zero before first use.
func (engine *Engine) CurrentTime() float64 {
	engine.mu.Lock()
	mixer := engine.mixer
	engine.mu.Unlock()
	if mixer == nil {
		return 0
	}
	return mixer.CurrentTime()
}

// PlayTick plays the quartz tick offset seconds from now.
func (engine *Engine) PlayTick(offset float64) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.ensureLocked() {
		return
	}
	now := engine.mixer.CurrentTime()
	at := math.Max(now, now+offset+engine.jitterLocked(tickJitter))
	engine.playBurstsLocked(at, tickBursts)
}

// PlayEscapementBeatAt plays one escapement beat at audio time at.
func (engine *Engine) PlayEscapementBeatAt(at float64) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.ensureLocked() {
		return
	}
	now := engine.mixer.CurrentTime()
	at = math.Max(now, at+engine.jitterLocked(escapementJitter))
	engine.playBurstsLocked(at, escapementBursts)
}

// PlayAlert plays the bell alert at half of frequency, offset seconds from now.
func (engine *Engine) PlayAlert(frequency, offset float64) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.ensureLocked() {
		return
	}
	at := engine.mixer.CurrentTime() + offset

	engine.mixer.scheduleNoise(at, bandpass, 5000, 2, envelope{
		{at: 0, value: 0, kind: rampSet},
		{at: 0.001, value: alertNoisePeak, kind: rampLinear},
		{at: 0.02, value: 0.0001, kind: rampExponential},
	}, alertNoiseLen, busDirect)

	fundamental := frequency * 0.5
	for _, p := range alertPartials {
		engine.mixer.scheduleSine(at, fundamental*p.ratio, alertMixGain, envelope{
			{at: 0, value: 0, kind: rampSet},
			{at: alertAttack, value: p.initial, kind: rampLinear},
			{at: alertBloom, value: p.peak, kind: rampLinear},
			{at: p.decay, value: 0.0001, kind: rampExponential},
		}, p.decay+alertTail, busDirect)
	}
}

// PlayAlertSequence plays count alerts spaced AlertSpacing apart.
func (engine *Engine) PlayAlertSequence(frequency float64, count int) {
	for index := 0; index < count; index++ {
		engine.PlayAlert(frequency, float64(index)*AlertSpacing.Seconds())
	}
}

// Close releases the output and the signal graph. It is safe to call twice.
func (engine *Engine) Close() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.state == stateClosed {
		return nil
	}
	var err error
	if engine.output != nil {
		err = engine.output.Close()
	}
	engine.output = nil
	engine.mixer = nil
	engine.state = stateClosed
	engine.logger.Debug().Str("event", "audio.closed").Msg("audio engine closed")
	return err
}

// ensureLocked builds the graph and opens the device on first use.
func (engine *Engine) ensureLocked() bool {
	switch engine.state {
	case stateClosed, stateUnavailable:
		return false
	case stateRunning:
		return true
	}

	if engine.mixer == nil {
		// The render goroutine gets its own source; rng stays under engine.mu.
		noise := rand.New(rand.NewPCG(engine.rng.Uint64(), engine.rng.Uint64()))
		engine.mixer = newMixer(engine.config.SampleRate, engine.config.MaxVoices, noise)
	}
	if engine.output == nil {
		output, err := engine.config.Output(engine.config.SampleRate, 2)
		if err != nil {
			engine.logger.Warn().Err(err).Str("event", "audio.unavailable").Msg("audio output unavailable, sounds disabled")
			engine.state = stateUnavailable
			engine.mixer = nil
			return false
		}
		engine.output = output
	}

	if !engine.started {
		if err := engine.output.Start(engine.mixer); err != nil {
			engine.logger.Warn().Err(err).Str("event", "audio.start_failed").Msg("audio output failed to start")
			engine.state = stateUnavailable
			return false
		}
		engine.started = true
	} else if err := engine.output.Resume(); err != nil {
		engine.logger.Debug().Err(err).Str("event", "audio.resume_failed").Msg("failed to resume output")
		return false
	}
	engine.state = stateRunning
	return true
}

func (engine *Engine) playBurstsLocked(at float64, bursts []burst) {
	for _, b := range bursts {
		start := at + b.delay
		scheduled := engine.mixer.scheduleNoise(start, b.kind, b.frequency, b.q, envelope{
			{at: 0, value: 0, kind: rampSet},
			{at: b.attack, value: b.gain, kind: rampLinear},
			{at: b.decay, value: 0.0001, kind: rampExponential},
		}, b.decay, busPhysical)
		if !scheduled {
			engine.logger.Debug().Str("event", "audio.voice_dropped").Msg("voice limit reached")
			return
		}
	}
}

func (engine *Engine) jitterLocked(width float64) float64 {
	return (engine.rng.Float64() - 0.5) * width
}
