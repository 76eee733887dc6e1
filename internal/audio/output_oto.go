package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoErr     error
)

// otoOutput plays the mixer stream through the process-wide oto context.
type otoOutput struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

// NewOtoOutput opens the system audio device. oto allows one context per
// process, so the first call decides the format for all later ones.
func NewOtoOutput(sampleRate, channels int) (Output, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if err != nil {
			otoErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoErr != nil {
		return nil, otoErr
	}
	return &otoOutput{ctx: otoContext}, nil
}

func (output *otoOutput) Start(source io.Reader) error {
	output.mu.Lock()
	defer output.mu.Unlock()
	if output.player != nil {
		return nil
	}
	if err := output.ctx.Resume(); err != nil {
		return fmt.Errorf("resume audio context: %w", err)
	}
	output.player = output.ctx.NewPlayer(source)
	output.player.Play()
	return nil
}

func (output *otoOutput) Suspend() error {
	return output.ctx.Suspend()
}

func (output *otoOutput) Resume() error {
	return output.ctx.Resume()
}

func (output *otoOutput) Close() error {
	output.mu.Lock()
	defer output.mu.Unlock()
	var err error
	if output.player != nil {
		err = output.player.Close()
		output.player = nil
	}
	if suspendErr := output.ctx.Suspend(); err == nil {
		err = suspendErr
	}
	return err
}
