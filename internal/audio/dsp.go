package audio

import (
	"math"
	"math/rand/v2"
)

type filterType int

const (
	highpass filterType = iota
	bandpass
)

// biquad is an RBJ filter with Web Audio parameter semantics: the highpass Q
// is a resonance in dB and the bandpass has a constant 0 dB peak.
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func newBiquad(kind filterType, frequency, q float64, sampleRate int) *biquad {
	w0 := 2 * math.Pi * frequency / float64(sampleRate)
	cosW0, sinW0 := math.Cos(w0), math.Sin(w0)

	var b0, b1, b2, alpha float64
	switch kind {
	case highpass:
		alpha = sinW0 / (2 * math.Pow(10, q/20))
		b0 = (1 + cosW0) / 2
		b1 = -(1 + cosW0)
		b2 = (1 + cosW0) / 2
	default:
		alpha = sinW0 / (2 * q)
		b0 = alpha
		b1 = 0
		b2 = -alpha
	}
	a0 := 1 + alpha
	return &biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func (filter *biquad) process(x float64) float64 {
	y := filter.b0*x + filter.b1*filter.x1 + filter.b2*filter.x2 - filter.a1*filter.y1 - filter.a2*filter.y2
	filter.x2, filter.x1 = filter.x1, x
	filter.y2, filter.y1 = filter.y1, y
	return y
}

type rampKind int

const (
	rampSet rampKind = iota
	rampLinear
	rampExponential
)

type breakpoint struct {
	at    float64
	value float64
	kind  rampKind
}

// envelope is a gain automation timeline in seconds from voice start. Each
// point ramps from the previous value the way its kind says.
type envelope []breakpoint

func (env envelope) valueAt(t float64) float64 {
	if len(env) == 0 || t < env[0].at {
		return 0
	}
	for index := 1; index < len(env); index++ {
		next := env[index]
		if t >= next.at {
			continue
		}
		prev := env[index-1]
		frac := (t - prev.at) / (next.at - prev.at)
		switch next.kind {
		case rampLinear:
			return prev.value + (next.value-prev.value)*frac
		case rampExponential:
			if prev.value <= 0 || next.value <= 0 {
				return prev.value
			}
			return prev.value * math.Pow(next.value/prev.value, frac)
		default:
			return prev.value
		}
	}
	return env[len(env)-1].value
}

// waveShaper soft-clips through a lookup curve with linear interpolation.
type waveShaper struct {
	curve []float64
}

func newWaveShaper(k float64, samples int) *waveShaper {
	curve := make([]float64, samples)
	for index := range curve {
		x := float64(index)*2/float64(samples) - 1
		curve[index] = (3 + k) * x * 20 * (math.Pi / 180) / (math.Pi + k*math.Abs(x))
	}
	return &waveShaper{curve: curve}
}

func (shaper *waveShaper) apply(x float64) float64 {
	last := len(shaper.curve) - 1
	v := float64(last) * (x + 1) / 2
	if v <= 0 {
		return shaper.curve[0]
	}
	if v >= float64(last) {
		return shaper.curve[last]
	}
	index := int(v)
	frac := v - float64(index)
	return shaper.curve[index]*(1-frac) + shaper.curve[index+1]*frac
}

// panner places a mono source with equal-power panning and inverse-distance
// attenuation relative to a listener at the origin facing -z.
type panner struct {
	left, right float64
}

func newPanner(x, y, z float64) panner {
	distance := math.Sqrt(x*x + y*y + z*z)
	const refDistance, rolloff = 1.0, 1.0
	gain := refDistance / (refDistance + rolloff*(math.Max(distance, refDistance)-refDistance))

	azimuth := 0.0
	if x != 0 || z != 0 {
		azimuth = math.Atan2(x, -z) * 180 / math.Pi
	}
	azimuth = math.Max(-90, math.Min(90, azimuth))
	position := (azimuth + 90) / 180
	return panner{
		left:  math.Cos(position*math.Pi/2) * gain,
		right: math.Sin(position*math.Pi/2) * gain,
	}
}

type tap struct {
	offset int
	gain   float64
}

// reverb is a stereo convolution with a sparse velvet-noise impulse: one
// signed tap per slot, scaled so its energy matches the dense exponentially
// decaying noise it stands in for.
type reverb struct {
	left, right []tap
	historyL    []float64
	historyR    []float64
	position    int
	// silent counts consecutive zero input frames. Once it covers the whole
	// history the tail has drained and convolution is skipped.
	silent int
}

const (
	velvetSpacing       = 20
	tapFloor            = 1e-4
	convolverCalibrated = 0.00125
)

func newReverb(duration, decay float64, sampleRate int, rng *rand.Rand) *reverb {
	length := int(float64(sampleRate) * duration)
	amplitude := math.Sqrt(velvetSpacing / 3.0)

	build := func() []tap {
		taps := make([]tap, 0, length/velvetSpacing)
		for slot := 0; slot < length; slot += velvetSpacing {
			offset := slot + rng.IntN(velvetSpacing)
			if offset >= length {
				break
			}
			weight := math.Pow(float64(length-offset)/float64(length), decay)
			if weight < tapFloor {
				continue
			}
			sign := 1.0
			if rng.IntN(2) == 0 {
				sign = -1
			}
			taps = append(taps, tap{offset: offset, gain: sign * amplitude * weight})
		}
		return taps
	}
	left, right := build(), build()

	// Same normalization a convolver applies to its impulse response.
	power := 0.0
	for _, taps := range [][]tap{left, right} {
		for _, t := range taps {
			power += t.gain * t.gain
		}
	}
	power = math.Sqrt(power / float64(2*length))
	if power < 0.000125 || math.IsNaN(power) {
		power = 0.000125
	}
	scale := convolverCalibrated / power * 44100 / float64(sampleRate)
	for index := range left {
		left[index].gain *= scale
	}
	for index := range right {
		right[index].gain *= scale
	}

	return &reverb{
		left:     left,
		right:    right,
		historyL: make([]float64, length),
		historyR: make([]float64, length),
	}
}

func (rev *reverb) process(inL, inR float64) (float64, float64) {
	size := len(rev.historyL)
	if inL == 0 && inR == 0 {
		if rev.silent >= size {
			return 0, 0
		}
		rev.silent++
	} else {
		rev.silent = 0
	}
	rev.historyL[rev.position] = inL
	rev.historyR[rev.position] = inR

	var outL, outR float64
	for _, t := range rev.left {
		index := rev.position - t.offset
		if index < 0 {
			index += size
		}
		outL += rev.historyL[index] * t.gain
	}
	for _, t := range rev.right {
		index := rev.position - t.offset
		if index < 0 {
			index += size
		}
		outR += rev.historyR[index] * t.gain
	}

	rev.position++
	if rev.position == size {
		rev.position = 0
	}
	return outL, outR
}
