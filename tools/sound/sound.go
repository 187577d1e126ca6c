// Package sound plays short feedback tones in play mode.
package sound

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Player plays feedback tones. Without a successful Init every call is a
// no-op, so the quiz runs fine on machines without audio.
type Player struct {
	mu          sync.Mutex
	initialized bool
}

// New creates a silent player
func New() *Player {
	return &Player{}
}

// Init sets up the audio device
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

// Chime plays the rising two-note "correct" tone
func (p *Player) Chime() {
	p.play(Chime(sampleRate))
}

// Buzz plays the low "incorrect" tone
func (p *Player) Buzz() {
	p.play(Buzz(sampleRate))
}

func (p *Player) play(s beep.Streamer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || s == nil {
		return
	}
	speaker.Play(s)
}

// Close stops playback.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	speaker.Clear()
	p.initialized = false
}

// Chime returns two 80ms sine notes, A5 then E6.
func Chime(sr beep.SampleRate) beep.Streamer {
	return beep.Seq(tone(sr, 880, 80*time.Millisecond), tone(sr, 1318.5, 80*time.Millisecond))
}

// Buzz returns a 150ms 120Hz tone.
func Buzz(sr beep.SampleRate) beep.Streamer {
	return tone(sr, 120, 150*time.Millisecond)
}

func tone(sr beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	sine, err := generators.SineTone(sr, freq)
	if err != nil {
		return beep.Silence(sr.N(d))
	}
	return beep.Take(sr.N(d), sine)
}
