package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutput struct {
	mu       sync.Mutex
	source   io.Reader
	starts   int
	resumes  int
	suspends int
	closes   int
}

func (output *fakeOutput) Start(source io.Reader) error {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.source = source
	output.starts++
	return nil
}

func (output *fakeOutput) Suspend() error {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.suspends++
	return nil
}

func (output *fakeOutput) Resume() error {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.resumes++
	return nil
}

func (output *fakeOutput) Close() error {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.closes++
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeOutput) {
	t.Helper()
	output := &fakeOutput{}
	opened := 0
	engine := NewEngine(Config{Seed: 42, Output: func(sampleRate, channels int) (Output, error) {
		opened++
		require.Equal(t, DefaultSampleRate, sampleRate)
		require.Equal(t, 2, channels)
		require.Equal(t, 1, opened, "device must be opened once")
		return output, nil
	}})
	t.Cleanup(func() { _ = engine.Close() })
	return engine, output
}

// render pulls seconds of audio and returns the peak absolute sample.
func render(t *testing.T, source io.Reader, seconds float64) int {
	t.Helper()
	buf := make([]byte, int(seconds*DefaultSampleRate)*bytesPerFrame)
	n, err := io.ReadFull(source, buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	peak := 0
	for offset := 0; offset < len(buf); offset += 2 {
		sample := int(int16(binary.LittleEndian.Uint16(buf[offset:])))
		if sample < 0 {
			sample = -sample
		}
		peak = max(peak, sample)
	}
	return peak
}

func TestEngineIsLazy(t *testing.T) {
	engine, output := newTestEngine(t)

	assert.Zero(t, engine.CurrentTime())
	assert.Zero(t, output.starts)

	engine.PlayTick(0)
	assert.Equal(t, 1, output.starts)
	assert.NotNil(t, output.source)
	engine.PlayTick(0)
	assert.Equal(t, 1, output.starts)
}

func TestMixerRendersSilenceWithoutVoices(t *testing.T) {
	engine, output := newTestEngine(t)
	engine.Resume()

	assert.Zero(t, render(t, output.source, 0.1))
	assert.InDelta(t, 0.1, engine.CurrentTime(), 1e-9)
}

func TestTickIsAudibleAndFinishes(t *testing.T) {
	engine, output := newTestEngine(t)

	engine.PlayTick(0)
	require.Equal(t, len(tickBursts), engine.mixer.Pending())

	assert.Greater(t, render(t, output.source, 0.15), 0)
	render(t, output.source, 0.3)
	assert.Zero(t, engine.mixer.Pending())
}

func TestEscapementBeatStaggersBursts(t *testing.T) {
	engine, _ := newTestEngine(t)

	engine.PlayEscapementBeatAt(1.0)
	mixer := engine.mixer
	require.Len(t, mixer.voices, 3)
	first := mixer.voices[0].start
	assert.InDelta(t, 1.0*DefaultSampleRate, float64(first), 0.003*DefaultSampleRate)
	assert.InDelta(t, 0.008*DefaultSampleRate, float64(mixer.voices[1].start-first), 1)
	assert.InDelta(t, 0.015*DefaultSampleRate, float64(mixer.voices[2].start-first), 1)
}

func TestAlertSequenceSpacing(t *testing.T) {
	engine, output := newTestEngine(t)

	engine.PlayAlertSequence(880, 3)
	voicesPerAlert := 1 + len(alertPartials)
	require.Len(t, engine.mixer.voices, 3*voicesPerAlert)

	for index := 0; index < 3; index++ {
		want := int64(math.Round(float64(index) * AlertSpacing.Seconds() * DefaultSampleRate))
		assert.Equal(t, want, engine.mixer.voices[index*voicesPerAlert].start)
	}
	assert.Greater(t, render(t, output.source, 0.5), 1000)
}

func TestVoiceLimit(t *testing.T) {
	engine := NewEngine(Config{Seed: 1, MaxVoices: 4, Output: func(int, int) (Output, error) {
		return &fakeOutput{}, nil
	}})
	defer engine.Close()

	engine.PlayTick(0)
	engine.PlayTick(0)
	assert.Equal(t, 4, engine.mixer.Pending())
}

func TestUnavailableDeviceDegradesToNoOps(t *testing.T) {
	attempts := 0
	engine := NewEngine(Config{Output: func(int, int) (Output, error) {
		attempts++
		return nil, ErrUnavailable
	}})

	engine.PlayTick(0)
	engine.PlayAlertSequence(1500, 3)
	engine.PlayEscapementBeatAt(0)
	engine.Resume()

	assert.Equal(t, 1, attempts)
	assert.Zero(t, engine.CurrentTime())
	assert.NoError(t, engine.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	engine, output := newTestEngine(t)
	engine.PlayTick(0)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())
	assert.Equal(t, 1, output.closes)

	engine.PlayTick(0)
	assert.Equal(t, 1, output.starts)
	assert.Nil(t, engine.mixer)
}

func TestSuspendThenResume(t *testing.T) {
	engine, output := newTestEngine(t)
	engine.Resume()
	engine.Suspend()
	engine.PlayTick(0)

	assert.Equal(t, 1, output.starts)
	assert.Equal(t, 1, output.suspends)
	assert.Equal(t, 1, output.resumes)
}
