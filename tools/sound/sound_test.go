package sound

import (
	"math"
	"testing"
	"time"

	"github.com/gopxl/beep"
)

func drain(s beep.Streamer) (n int, peak float64) {
	buf := make([][2]float64, 512)
	for {
		got, ok := s.Stream(buf)
		for _, sample := range buf[:got] {
			peak = math.Max(peak, math.Abs(sample[0]))
		}
		n += got
		if !ok {
			return n, peak
		}
	}
}

func TestChimeLength(t *testing.T) {
	sr := beep.SampleRate(8000)
	n, peak := drain(Chime(sr))

	if want := 2 * sr.N(80*time.Millisecond); n != want {
		t.Errorf("chime has %d samples, want %d", n, want)
	}
	if peak == 0 {
		t.Error("chime is silent")
	}
}

func TestBuzzLength(t *testing.T) {
	sr := beep.SampleRate(8000)
	if n, _ := drain(Buzz(sr)); n != sr.N(150*time.Millisecond) {
		t.Errorf("buzz has %d samples", n)
	}
}

func TestUninitializedPlayerIsSilent(t *testing.T) {
	p := New()
	p.Chime()
	p.Buzz()
	p.Close()
}
