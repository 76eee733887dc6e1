package audio

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"sync"
)

const (
	bytesPerFrame    = 4
	distortionAmount = 25
	distortionLength = 44100
	reverbDuration   = 0.2
	reverbDecay      = 5
	reverbWetGain    = 0.6
)

type bus int

const (
	// busPhysical runs through the distortion before the panner.
	busPhysical bus = iota
	// busDirect feeds the panner straight away.
	busDirect
)

type source interface {
	sample(t float64) float64
}

type noiseSource struct {
	rng    *rand.Rand
	filter *biquad
	env    envelope
}

func (noise *noiseSource) sample(t float64) float64 {
	return noise.filter.process(noise.rng.Float64()*2-1) * noise.env.valueAt(t)
}

type sineSource struct {
	phase float64
	step  float64
	env   envelope
}

func (sine *sineSource) sample(t float64) float64 {
	value := math.Sin(sine.phase) * sine.env.valueAt(t)
	sine.phase += sine.step
	if sine.phase > 2*math.Pi {
		sine.phase -= 2 * math.Pi
	}
	return value
}

type voice struct {
	start, end int64
	bus        bus
	gain       float64
	source     source
}

// Mixer renders scheduled voices through the shared signal graph as 16-bit
// little-endian stereo. Its audio clock is the number of frames rendered.
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	frame      int64
	voices     []*voice
	maxVoices  int
	rng        *rand.Rand

	shaper *waveShaper
	panner panner
	reverb *reverb
}

func newMixer(sampleRate, maxVoices int, rng *rand.Rand) *Mixer {
	return &Mixer{
		sampleRate: sampleRate,
		maxVoices:  maxVoices,
		rng:        rng,
		shaper:     newWaveShaper(distortionAmount, distortionLength),
		panner:     newPanner(0, 0.2, -1.5),
		reverb:     newReverb(reverbDuration, reverbDecay, sampleRate, rng),
	}
}

// CurrentTime returns the audio clock in seconds.
func (mixer *Mixer) CurrentTime() float64 {
	mixer.mu.Lock()
	defer mixer.mu.Unlock()
	return float64(mixer.frame) / float64(mixer.sampleRate)
}

// Pending returns the number of voices that have not finished.
func (mixer *Mixer) Pending() int {
	mixer.mu.Lock()
	defer mixer.mu.Unlock()
	return len(mixer.voices)
}

// scheduleNoise adds a filtered noise burst at audio time at.
func (mixer *Mixer) scheduleNoise(at float64, kind filterType, frequency, q float64, env envelope, duration float64, target bus) bool {
	mixer.mu.Lock()
	defer mixer.mu.Unlock()
	return mixer.addLocked(at, duration, target, 1, &noiseSource{
		rng:    mixer.rng,
		filter: newBiquad(kind, frequency, q, mixer.sampleRate),
		env:    env,
	})
}

// scheduleSine adds an enveloped sine partial at audio time at.
func (mixer *Mixer) scheduleSine(at, frequency, gain float64, env envelope, duration float64, target bus) bool {
	mixer.mu.Lock()
	defer mixer.mu.Unlock()
	return mixer.addLocked(at, duration, target, gain, &sineSource{
		step: 2 * math.Pi * frequency / float64(mixer.sampleRate),
		env:  env,
	})
}

func (mixer *Mixer) addLocked(at, duration float64, target bus, gain float64, src source) bool {
	if len(mixer.voices) >= mixer.maxVoices {
		return false
	}
	start := int64(math.Round(at * float64(mixer.sampleRate)))
	if start < mixer.frame {
		start = mixer.frame
	}
	end := start + int64(math.Round(duration*float64(mixer.sampleRate)))
	mixer.voices = append(mixer.voices, &voice{start: start, end: end, bus: target, gain: gain, source: src})
	return true
}

// Read renders whole frames into p. It never returns an error; silence is
// rendered when nothing is scheduled.
func (mixer *Mixer) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	mixer.mu.Lock()
	defer mixer.mu.Unlock()

	for index := 0; index < frames; index++ {
		left, right := mixer.renderFrameLocked()
		offset := index * bytesPerFrame
		binary.LittleEndian.PutUint16(p[offset:], uint16(toPCM(left)))
		binary.LittleEndian.PutUint16(p[offset+2:], uint16(toPCM(right)))
	}
	mixer.pruneLocked()
	return frames * bytesPerFrame, nil
}

func (mixer *Mixer) renderFrameLocked() (float64, float64) {
	now := mixer.frame
	var physical, direct float64
	for _, v := range mixer.voices {
		if now < v.start || now >= v.end {
			continue
		}
		value := v.source.sample(float64(now-v.start)/float64(mixer.sampleRate)) * v.gain
		if v.bus == busPhysical {
			physical += value
		} else {
			direct += value
		}
	}

	mono := direct
	if physical != 0 {
		mono += mixer.shaper.apply(physical)
	}
	left, right := mono*mixer.panner.left, mono*mixer.panner.right
	wetL, wetR := mixer.reverb.process(left, right)
	mixer.frame++
	return left + wetL*reverbWetGain, right + wetR*reverbWetGain
}

func (mixer *Mixer) pruneLocked() {
	alive := mixer.voices[:0]
	for _, v := range mixer.voices {
		if v.end > mixer.frame {
			alive = append(alive, v)
		}
	}
	for index := len(alive); index < len(mixer.voices); index++ {
		mixer.voices[index] = nil
	}
	mixer.voices = alive
}

func toPCM(value float64) int16 {
	if value > 1 {
		value = 1
	} else if value < -1 {
		value = -1
	}
	return int16(value * math.MaxInt16)
}
