// Package legatofx is a legato/glide articulation instrument: a transition
// engine driving a small sampler, playable live or rendered offline.
package legatofx

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	intaudio "github.com/cbegin/legatofx/internal/audio"
	"github.com/cbegin/legatofx/internal/articulation"
	"github.com/cbegin/legatofx/internal/clock"
	"github.com/cbegin/legatofx/internal/config"
	"github.com/cbegin/legatofx/internal/effects"
	"github.com/cbegin/legatofx/internal/host"
	"github.com/cbegin/legatofx/internal/note"
	"github.com/cbegin/legatofx/internal/retrigger"
	"github.com/cbegin/legatofx/internal/sampler"
	"github.com/cbegin/legatofx/internal/transform"
	"github.com/cbegin/legatofx/internal/transition"
)

var ErrInvalidSampleRate = errors.New("sample rate must be positive")

// maxInbox bounds events waiting for the audio thread.
const maxInbox = 4096

type Option func(*instrumentConfig)

type instrumentConfig struct {
	settings   config.Settings
	tempo      float64
	rng        *rand.Rand
	logger     *log.Logger
	transforms []transform.Transform
	sampleTap  func([]float32)
}

func defaultInstrumentConfig() instrumentConfig {
	return instrumentConfig{settings: config.Default()}
}

// WithSettings replaces the knob settings. They are clamped on use.
func WithSettings(s config.Settings) Option {
	return func(cfg *instrumentConfig) {
		cfg.settings = s
	}
}

// WithRetrigger selects the ghost retrigger engine instead of the
// transition engine.
func WithRetrigger() Option {
	return func(cfg *instrumentConfig) {
		cfg.settings.Engine = config.EngineRetrigger
	}
}

// WithTempo fixes the tempo, overriding settings and MIDI file tempo.
func WithTempo(bpm float64) Option {
	return func(cfg *instrumentConfig) {
		cfg.tempo = bpm
	}
}

// WithRand sets the random source for humanising and ghost velocities.
func WithRand(rng *rand.Rand) Option {
	return func(cfg *instrumentConfig) {
		cfg.rng = rng
	}
}

// WithLogger enables diagnostics for dropped events and exhausted polyphony.
func WithLogger(l *log.Logger) Option {
	return func(cfg *instrumentConfig) {
		cfg.logger = l
	}
}

// WithTransforms appends transforms after those built from the settings.
func WithTransforms(t ...transform.Transform) Option {
	return func(cfg *instrumentConfig) {
		cfg.transforms = append(cfg.transforms, t...)
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *instrumentConfig) {
		cfg.sampleTap = tap
	}
}

// Instrument owns one engine instance. Note input may come from any
// goroutine; it is queued and applied by Process, which must only be called
// from one goroutine at a time.
type Instrument struct {
	id         uuid.UUID
	sampleRate int
	logger     *log.Logger
	sampleTap  func([]float32)
	tempoFixed bool

	alloc  *sampler.Engine
	clk    *clock.Clock
	host   *host.Host
	trans  *transition.Engine
	column *retriggerColumn
	output effects.Chain

	mu         sync.Mutex
	settings   config.Settings
	transforms transform.Chain
	inbox      []note.Event
	commands   []func()
	dropped    int
	out        *intaudio.Output
	done       chan struct{}
	finishing  bool

	frames   atomic.Int64
	finished atomic.Bool
}

func NewInstrument(sampleRate int, opts ...Option) (*Instrument, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("new instrument: %w", ErrInvalidSampleRate)
	}
	cfg := defaultInstrumentConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := cfg.settings.Clamp()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("new instrument: %w", err)
	}
	if cfg.tempo > 0 {
		s.Tempo = cfg.tempo
		s = s.Clamp()
	}
	ts, err := s.Transition()
	if err != nil {
		return nil, fmt.Errorf("new instrument: %w", err)
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	params := sampler.DefaultParams()
	params.Polyphony = s.Polyphony
	params.MasterGain = s.Gain
	params.VibratoCents = s.Vibrato.DepthCents
	params.VibratoHz = s.Vibrato.RateHz

	inst := &Instrument{
		id:         uuid.New(),
		sampleRate: sampleRate,
		logger:     cfg.logger,
		sampleTap:  cfg.sampleTap,
		tempoFixed: cfg.tempo > 0,
		alloc:      sampler.New(sampleRate, params),
		clk:        clock.New(sampleRate, s.Tempo),
		settings:   s,
	}
	inst.transforms = buildTransforms(s, sampleRate, cfg.rng, cfg.transforms)
	inst.output = buildOutput(s.Output, sampleRate)

	voices := &loggingAllocator{Engine: inst.alloc, logger: cfg.logger, id: inst.id}
	var handler host.Handler
	if s.Engine == config.EngineRetrigger {
		inst.column = newRetriggerColumn(voices, cfg.rng)
		handler = inst.column
	} else {
		inst.trans = transition.New(voices, inst.clk, ts)
		handler = inst.trans
	}
	inst.host = host.NewWithOptions(sampleRate, inst.alloc, inst.clk, handler, host.Options{
		OnEvent: inst.onHostEvent,
	})
	return inst, nil
}

func buildTransforms(s config.Settings, sampleRate int, rng *rand.Rand, extra []transform.Transform) transform.Chain {
	var chain transform.Chain
	if s.Transpose != 0 {
		chain = append(chain, transform.Transposer{Semitones: s.Transpose})
	}
	if len(s.VelocityCurve) >= 2 {
		if curve, err := transform.NewVelocityCurve(s.VelocityCurve); err == nil {
			chain = append(chain, curve)
		}
	}
	if h := s.Humaniser; h != (config.Humaniser{}) {
		hm := transform.NewHumaniser(sampleRate, rng)
		hm.Velocity = h.Velocity
		hm.PitchCents = h.PitchCents
		hm.OffsetMs = h.OffsetMs
		hm.NoteOnDelayMs = h.NoteOnDelayMs
		hm.NoteOffDelayMs = h.NoteOffDelayMs
		chain = append(chain, hm)
	}
	return append(chain, extra...)
}

func buildOutput(o config.Output, sampleRate int) effects.Chain {
	var chain effects.Chain
	if o.RoomMix > 0 {
		chain = append(chain, effects.NewRoom(sampleRate, float32(o.RoomSize), float32(o.RoomDecay), float32(o.RoomMix)))
	}
	if o.LimiterDB < 0 {
		chain = append(chain, effects.NewLimiter(sampleRate, o.LimiterDB, 20, 1, 120))
	}
	return chain
}

// ID identifies this instrument instance in logs.
func (i *Instrument) ID() string { return i.id.String() }

func (i *Instrument) SampleRate() int { return i.sampleRate }

// Now returns the engine time of the next frame to be rendered.
func (i *Instrument) Now() time.Duration {
	return time.Duration(float64(i.frames.Load()) / float64(i.sampleRate) * float64(time.Second))
}

// Send queues a timed event. Events stamped before Now play on the next
// buffer.
func (i *Instrument) Send(ev note.Event) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ev = i.transformLocked(ev)
	if len(i.inbox) >= maxInbox {
		i.dropped++
		if i.logger != nil && i.dropped == 1 {
			i.logger.Printf("[%s] event queue full, dropping events", i.id)
		}
		return
	}
	i.inbox = append(i.inbox, ev)
}

// Schedule queues a batch of timed events, such as a whole file, without
// the live queue limit. It returns the time of the latest event.
func (i *Instrument) Schedule(events []note.Event) time.Duration {
	var end time.Duration
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, ev := range events {
		ev = i.transformLocked(ev)
		i.inbox = append(i.inbox, ev)
		end = max(end, ev.Time)
	}
	return end
}

func (i *Instrument) transformLocked(ev note.Event) note.Event {
	if ev.Kind == note.KindController {
		return ev
	}
	return i.transforms.Apply(ev)
}

// NoteOn plays a note now.
func (i *Instrument) NoteOn(number, velocity int) {
	i.Send(note.NoteOn(number, velocity, i.Now()))
}

func (i *Instrument) NoteOff(number int) {
	i.Send(note.NoteOff(number, i.Now()))
}

func (i *Instrument) Controller(number, value int) {
	i.Send(note.Controller(number, value, i.Now()))
}

// Settings returns the active knob settings.
func (i *Instrument) Settings() config.Settings {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.settings
}

// Configure applies new knob settings from the next buffer on. The engine
// kind, polyphony, transforms and output stage are fixed at construction.
func (i *Instrument) Configure(s config.Settings) error {
	s = s.Clamp()
	if err := s.Validate(); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	ts, err := s.Transition()
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	s.Engine = i.settings.Engine
	s.Polyphony = i.settings.Polyphony
	s.Transpose = i.settings.Transpose
	s.VelocityCurve = i.settings.VelocityCurve
	s.Humaniser = i.settings.Humaniser
	s.Vibrato = i.settings.Vibrato
	s.Output = i.settings.Output
	i.settings = s
	i.commands = append(i.commands, func() {
		if !i.tempoFixed {
			i.clk.SetTempo(s.Tempo)
		}
		i.alloc.SetMasterGain(s.Gain)
		if i.trans != nil {
			i.trans.Configure(ts)
		}
	})
	return nil
}

// SetMode switches articulation mode.
func (i *Instrument) SetMode(mode articulation.Mode) error {
	s := i.Settings()
	s.Mode = mode.String()
	return i.Configure(s)
}

// SetTempo changes the tempo unless WithTempo fixed it.
func (i *Instrument) SetTempo(bpm float64) {
	if i.tempoFixed {
		return
	}
	s := i.Settings()
	s.Tempo = bpm
	_ = i.Configure(s)
}

// TransitionState returns the transition engine state. ok is false in
// retrigger mode. Call it from the goroutine that calls Process.
func (i *Instrument) TransitionState() (st transition.State, ok bool) {
	if i.trans == nil {
		return transition.State{}, false
	}
	return i.trans.State(), true
}

// RetriggerState returns the retrigger engine state. ok is false in
// transition mode. Call it from the goroutine that calls Process.
func (i *Instrument) RetriggerState() (st retrigger.State, ok bool) {
	if i.column == nil {
		return retrigger.State{}, false
	}
	return i.column.engine.State(), true
}

// ActiveVoices returns the sounding voice count. Call it from the goroutine
// that calls Process.
func (i *Instrument) ActiveVoices() int { return i.alloc.ActiveVoiceCount() }

// Process renders interleaved stereo frames, applying queued settings and
// events first.
func (i *Instrument) Process(dst []float32) {
	i.mu.Lock()
	commands := i.commands
	events := i.inbox
	i.commands = nil
	i.inbox = nil
	i.dropped = 0
	i.mu.Unlock()

	for _, apply := range commands {
		apply()
	}
	for _, ev := range events {
		i.host.Enqueue(ev)
	}
	i.host.Process(dst)
	i.output.ProcessInterleaved(dst)
	i.frames.Add(int64(len(dst) / 2))
	if i.sampleTap != nil {
		i.sampleTap(dst)
	}
}

// Finished reports whether a finishing playback has drained.
func (i *Instrument) Finished() bool { return i.finished.Load() }

func (i *Instrument) onHostEvent(kind host.EventKind) {
	if kind != host.EventDrained {
		return
	}
	i.mu.Lock()
	finishing := i.finishing && len(i.inbox) == 0
	i.mu.Unlock()
	if finishing {
		i.finished.Store(true)
		i.signalDone()
	}
}

// Play starts live audio output. Without finish, the stream runs until Stop.
// With finish, it ends once queued events have played and voices have died
// away, and Wait returns.
func (i *Instrument) Play(finish bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.out != nil {
		return nil
	}
	i.finishing = finish
	i.finished.Store(false)
	if i.done != nil {
		close(i.done)
	}
	i.done = make(chan struct{})
	out, err := intaudio.NewOutput(i.sampleRate, i, intaudio.DefaultBlockFrames)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	i.out = out
	i.out.Play()
	return nil
}

func (i *Instrument) signalDone() {
	i.mu.Lock()
	done := i.done
	i.done = nil
	i.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// Stop ends live output.
func (i *Instrument) Stop() error {
	i.mu.Lock()
	if i.out == nil {
		i.mu.Unlock()
		return nil
	}
	err := i.out.Stop()
	i.out = nil
	done := i.done
	i.done = nil
	i.mu.Unlock()
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until a finishing playback ends or Stop is called.
func (i *Instrument) Wait() {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()
	if done != nil {
		<-done
	}
}
