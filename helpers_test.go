package roulette

import (
	"context"
	"errors"
	"sync"
)

// scriptedGenerator replays fixed values; exhausted queues return 0 and min
type scriptedGenerator struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
	err    error
}

func (g *scriptedGenerator) GenerateFloat() (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	if len(g.floats) == 0 {
		return 0, nil
	}
	f := g.floats[0]
	g.floats = g.floats[1:]
	return f, nil
}

func (g *scriptedGenerator) GenerateInRange(min, max int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return 0, g.err
	}
	if min > max {
		return 0, ErrInvalidRange
	}
	if len(g.ints) == 0 {
		return min, nil
	}
	v := g.ints[0]
	g.ints = g.ints[1:]
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v, nil
}

type audioCall struct {
	Op     string
	Cue    AudioCue
	Volume float64
}

// recordingPlayer records every command; failing makes every call return an error
type recordingPlayer struct {
	mu      sync.Mutex
	calls   []audioCall
	failing bool
	panics  bool
}

func (p *recordingPlayer) record(c audioCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
	if p.panics {
		panic("audio device gone")
	}
	if p.failing {
		return errors.New("audio device unavailable")
	}
	return nil
}

func (p *recordingPlayer) Play(cue AudioCue) error  { return p.record(audioCall{Op: "play", Cue: cue}) }
func (p *recordingPlayer) Pause(cue AudioCue) error { return p.record(audioCall{Op: "pause", Cue: cue}) }
func (p *recordingPlayer) SetVolume(cue AudioCue, v float64) error {
	return p.record(audioCall{Op: "volume", Cue: cue, Volume: v})
}

func (p *recordingPlayer) count(op string, cue AudioCue) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Op == op && c.Cue == cue {
			n++
		}
	}
	return n
}

func (p *recordingPlayer) plays(prefix string) []AudioCue {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AudioCue
	for _, c := range p.calls {
		if c.Op == "play" && len(c.Cue) >= len(prefix) && string(c.Cue[:len(prefix)]) == prefix {
			out = append(out, c.Cue)
		}
	}
	return out
}

type recordingCelebrator struct {
	mu       sync.Mutex
	outcomes []WinnerOutcome
}

func (c *recordingCelebrator) Celebrate(o WinnerOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *recordingCelebrator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outcomes)
}

type recordingSink struct {
	mu      sync.Mutex
	records []ResultRecord
	err     error
}

func (s *recordingSink) SaveResult(_ context.Context, r ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return s.err
}

func (s *recordingSink) all() []ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ResultRecord(nil), s.records...)
}

// items builds items from probabilities; nil entries are auto
func items(probs ...*float64) []Item {
	out := make([]Item, len(probs))
	for i, p := range probs {
		out[i] = Item{Name: string(rune('A' + i)), Probability: p}
	}
	return out
}

func testProfile(fake bool, probs ...*float64) *Profile {
	return &Profile{
		ID:       "profile-test",
		Name:     "test",
		Items:    items(probs...),
		Settings: ProfileSettings{Title: "test", FakeEnabled: fake},
	}
}
