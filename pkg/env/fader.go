// Package env loads image-based lighting environments and crossfades
// between them without popping. A quarter-resolution preview is shown as
// soon as a panorama is decoded; once the full-resolution reflection map is
// ready the preview fades into it with a quartic ease-out.
//
// A Fader is owned by the render goroutine: every method except the
// background load jobs it schedules must be called from there. Jobs only
// build new immutable textures and hand them over through a mailbox that
// Tick drains.
package env

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/taigrr/studio/pkg/render"
	"github.com/taigrr/studio/pkg/shade"
)

var (
	// ErrUnknownPreset is reported for ids missing from the catalog.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrSuperseded is reported for a load replaced by a newer SetPreset.
	ErrSuperseded = errors.New("superseded by a newer preset")
	// ErrClosed is reported for loads pending when the fader is closed.
	ErrClosed = errors.New("fader closed")
	// ErrLoadPanic wraps a panic recovered while fetching or decoding.
	ErrLoadPanic = errors.New("environment load panicked")
)

const (
	// DefaultFadeDuration is the preview to full-resolution crossfade.
	DefaultFadeDuration = 2 * time.Second
	// swapThreshold is the fade progress at which the full-resolution map
	// becomes authoritative. The last stretch of the ease-out is
	// imperceptible, so the swap cannot be seen.
	swapThreshold = 0.98
	mailboxSize   = 16
)

// Executor runs background load jobs.
type Executor interface {
	Go(job func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(job func())

func (fn ExecutorFunc) Go(job func()) { fn(job) }

// GoExecutor runs each job on a new goroutine.
var GoExecutor Executor = ExecutorFunc(func(job func()) { go job() })

// Resolution reports the outcome of a SetPreset call.
type Resolution struct {
	PresetID string
	Mood     *MoodHint // nil on failure
	Err      error
}

// State is a snapshot of the fader.
type State struct {
	ActivePresetID    string
	LoadingPresetID   string
	FullRes           *render.Texture
	LowRes            *render.Texture
	FullResReflection *ReflectionMap
	LowResReflection  *ReflectionMap
	FadeProgress      float32
	Fading            bool
	RotationDegrees   float32
	RotationPending   bool
	Strength          float32
	Blurriness        float32
	BlurPending       bool
	BackgroundEnabled bool
	Enabled           bool
}

// entry is a texture with its reflection map.
type entry struct {
	id        string
	tex       *render.Texture
	refl      *ReflectionMap
	mood      *MoodHint
	transient bool // previews are never cached
}

func (e *entry) dispose() {
	if e == nil {
		return
	}
	e.refl.Dispose()
	e.tex.Dispose()
}

type msgKind int

const (
	msgPreview msgKind = iota
	msgFull
	msgFailed
)

type message struct {
	token uint64
	kind  msgKind
	entry *entry
	err   error
}

// Fader is the environment loader and crossfader.
type Fader struct {
	log      *zap.Logger
	catalog  *Catalog
	fetcher  Fetcher
	exec     Executor
	levels   int
	duration float32

	ctx     context.Context
	stop    context.CancelFunc
	mailbox chan message

	token      uint64
	cancel     context.CancelFunc
	loading    string
	waiters    []chan *MoodHint
	onResolved func(Resolution)

	// Full-resolution entries by preset id. Never evicted.
	cache map[string]*entry

	low      *entry // preview, only during a transition
	high     *entry // full resolution, or a promoted preview
	fading   bool
	elapsed  float32
	progress float32

	enabled         bool
	background      bool
	strength        float32
	blur            float32
	rotation        float32
	pendingBlur     *float32
	pendingRotation *float32
	fallback        mgl32.Vec3
	fallbackHex     string
	closed          bool
}

// Option configures a Fader.
type Option func(*Fader)

func WithLogger(l *zap.Logger) Option {
	return func(f *Fader) {
		if l != nil {
			f.log = l
		}
	}
}

func WithCatalog(c *Catalog) Option {
	return func(f *Fader) {
		if c != nil {
			f.catalog = c
		}
	}
}

func WithFetcher(fe Fetcher) Option {
	return func(f *Fader) {
		if fe != nil {
			f.fetcher = fe
		}
	}
}

// WithExecutor sets how load jobs are scheduled. Tests pass a synchronous
// or manually stepped executor.
func WithExecutor(e Executor) Option {
	return func(f *Fader) {
		if e != nil {
			f.exec = e
		}
	}
}

// WithLevels sets the number of reflection map levels.
func WithLevels(n int) Option {
	return func(f *Fader) { f.levels = max(n, 1) }
}

// WithFadeDuration sets the crossfade duration. Zero swaps instantly.
func WithFadeDuration(d time.Duration) Option {
	return func(f *Fader) { f.duration = float32(max(d, 0).Seconds()) }
}

// NewFader returns an enabled fader with nothing loaded.
func NewFader(opts ...Option) *Fader {
	f := &Fader{
		log:         zap.NewNop(),
		catalog:     DefaultCatalog(),
		fetcher:     NewHTTPFetcher(),
		exec:        GoExecutor,
		levels:      DefaultLevels,
		duration:    float32(DefaultFadeDuration.Seconds()),
		mailbox:     make(chan message, mailboxSize),
		cache:       make(map[string]*entry),
		progress:    1,
		enabled:     true,
		background:  true,
		strength:    1,
		fallbackHex: "#000000",
	}
	for _, opt := range opts {
		opt(f)
	}
	f.ctx, f.stop = context.WithCancel(context.Background())
	return f
}

// SetPreset requests the environment id. The returned channel receives the
// preset's mood hint once the full-resolution map is in place, or nil if
// the load fails or is superseded. A cached preset is applied at once and
// the channel is already resolved when SetPreset returns.
func (f *Fader) SetPreset(id string) <-chan *MoodHint {
	res := make(chan *MoodHint, 1)
	if f.closed {
		res <- nil
		return res
	}
	preset, ok := f.catalog.Lookup(id)
	if !ok {
		f.log.Warn("unknown preset", zap.String("preset", id))
		res <- nil
		f.notify(Resolution{PresetID: id, Err: fmt.Errorf("%w: %s", ErrUnknownPreset, id)})
		return res
	}

	if f.loading == id {
		f.waiters = append(f.waiters, res)
		return res
	}

	if e, ok := f.cache[id]; ok {
		f.supersede()
		if f.high != e {
			f.show(e)
		}
		res <- e.mood
		f.notify(Resolution{PresetID: id, Mood: e.mood})
		return res
	}

	f.supersede()
	ctx, cancel := context.WithCancel(f.ctx)
	f.token++
	f.cancel = cancel
	f.loading = id
	f.waiters = []chan *MoodHint{res}
	token := f.token
	f.log.Info("loading preset", zap.String("preset", id), zap.String("source", preset.SourceURL))
	f.exec.Go(func() { f.load(ctx, token, preset) })
	return res
}

// supersede cancels the in-flight load, if any, and invalidates every
// message already posted for it.
func (f *Fader) supersede() {
	f.token++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.loading != "" {
		f.log.Debug("load superseded", zap.String("preset", f.loading))
		f.resolve(Resolution{PresetID: f.loading, Err: ErrSuperseded})
	}
}

func (f *Fader) resolve(r Resolution) {
	for _, w := range f.waiters {
		w <- r.Mood
	}
	f.waiters = nil
	f.loading = ""
	f.notify(r)
}

func (f *Fader) notify(r Resolution) {
	if f.onResolved != nil {
		f.onResolved(r)
	}
}

// OnResolved registers a callback invoked on the render goroutine whenever
// a SetPreset call resolves.
func (f *Fader) OnResolved(fn func(Resolution)) {
	f.onResolved = fn
}

// Tick advances the crossfade by dt seconds and then applies finished
// background work.
func (f *Fader) Tick(dt float32) {
	if f.closed {
		return
	}
	if !shade.IsFinite(dt) || dt < 0 {
		dt = 0
	}
	f.advance(dt)
	for {
		select {
		case m := <-f.mailbox:
			f.handle(m)
		default:
			return
		}
	}
}

func (f *Fader) advance(dt float32) {
	if !f.fading {
		return
	}
	f.elapsed += dt
	t := float32(1)
	if f.duration > 0 {
		t = f.elapsed / f.duration
	}
	if t >= 1 {
		f.finishFade()
		return
	}
	f.progress = max(f.progress, easeOutQuart(t))
}

func easeOutQuart(t float32) float32 {
	u := 1 - t
	return 1 - u*u*u*u
}

func (f *Fader) finishFade() {
	f.fading = false
	f.progress = 1
	f.elapsed = 0
	if f.low != nil {
		f.log.Debug("crossfade complete, releasing preview", zap.String("preset", f.low.id))
		f.low.dispose()
		f.low = nil
	}
	f.settle()
}

func (f *Fader) handle(m message) {
	if m.token != f.token {
		id := ""
		if m.entry != nil {
			id = m.entry.id
		}
		f.log.Debug("discarding stale load result", zap.String("preset", id))
		m.entry.dispose()
		return
	}
	switch m.kind {
	case msgPreview:
		f.installPreview(m.entry)
	case msgFull:
		f.installFull(m.entry)
	case msgFailed:
		f.fail(m.err)
	}
}

func (f *Fader) installPreview(e *entry) {
	f.dropTransient()
	f.low, f.high = e, nil
	f.fading = false
	f.progress = 0
	f.elapsed = 0
	f.settle()
	f.log.Debug("preview installed", zap.String("preset", e.id),
		zap.Int("width", e.tex.Width), zap.Int("height", e.tex.Height))
}

func (f *Fader) installFull(e *entry) {
	f.cache[e.id] = e
	if f.low != nil && f.low.id == e.id {
		f.high = e
		f.fading = true
		f.elapsed = 0
		if f.duration <= 0 {
			f.finishFade()
		}
	} else {
		f.show(e)
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.log.Info("preset ready", zap.String("preset", e.id),
		zap.Int("width", e.tex.Width), zap.Int("height", e.tex.Height), zap.Int("levels", e.refl.Levels()))
	f.resolve(Resolution{PresetID: e.id, Mood: e.mood})
}

// fail keeps whatever is on screen. A preview of the failed preset becomes
// the steady state.
func (f *Fader) fail(err error) {
	id := f.loading
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.low != nil && f.high == nil && f.low.id == id {
		f.high, f.low = f.low, nil
		f.progress = 1
		f.settle()
		f.log.Warn("full-resolution load failed, keeping preview", zap.String("preset", id), zap.Error(err))
	} else {
		f.log.Warn("preset load failed", zap.String("preset", id), zap.Error(err))
	}
	f.resolve(Resolution{PresetID: id, Err: err})
}

// show makes a cached entry current with no fade.
func (f *Fader) show(e *entry) {
	f.dropTransient()
	f.low, f.high = nil, e
	f.fading = false
	f.progress = 1
	f.elapsed = 0
	f.settle()
}

// dropTransient releases the preview and a promoted preview. Cached
// entries stay alive.
func (f *Fader) dropTransient() {
	if f.low != nil {
		f.low.dispose()
		f.low = nil
	}
	if f.high != nil && f.high.transient {
		f.high.dispose()
		f.high = nil
	}
}

// settle applies rotation and blur changes deferred during a fade.
func (f *Fader) settle() {
	if f.fading {
		return
	}
	if f.pendingRotation != nil {
		f.rotation = *f.pendingRotation
		f.pendingRotation = nil
	}
	if f.pendingBlur != nil {
		f.blur = *f.pendingBlur
		f.pendingBlur = nil
	}
}

// authoritative is the entry a single-map consumer should use.
func (f *Fader) authoritative() *entry {
	if f.high != nil && (f.low == nil || f.progress >= swapThreshold) {
		return f.high
	}
	if f.low != nil {
		return f.low
	}
	return f.high
}

// SetEnabled switches the environment on or off.
func (f *Fader) SetEnabled(on bool) { f.enabled = on }

// SetBackgroundEnabled switches the panorama background on or off
// independently of lighting.
func (f *Fader) SetBackgroundEnabled(on bool) { f.background = on }

// SetStrength sets the lighting intensity. Negative values clamp to 0.
func (f *Fader) SetStrength(v float32) {
	if !shade.IsFinite(v) {
		f.log.Warn("rejected environment strength", zap.Float32("value", v))
		return
	}
	f.strength = max(v, 0)
}

// SetBlurriness sets the background blur in [0, 1]. Deferred while a fade
// is running.
func (f *Fader) SetBlurriness(v float32) {
	if !shade.IsFinite(v) {
		f.log.Warn("rejected environment blurriness", zap.Float32("value", v))
		return
	}
	v = shade.Clamp01(v)
	if f.fading {
		f.pendingBlur = &v
		return
	}
	f.blur = v
}

// SetRotation rotates the panorama about the vertical axis. Deferred while
// a fade is running.
func (f *Fader) SetRotation(deg float32) {
	if !shade.IsFinite(deg) {
		f.log.Warn("rejected environment rotation", zap.Float32("value", deg))
		return
	}
	deg = shade.NormalizeDegrees(deg)
	if f.fading {
		f.pendingRotation = &deg
		return
	}
	f.rotation = deg
}

// SetFallbackColor sets the flat fill used when no environment is shown.
func (f *Fader) SetFallbackColor(hex string) {
	c, err := shade.ParseColor(hex)
	if err != nil {
		f.log.Warn("rejected fallback color", zap.String("value", hex), zap.Error(err))
		return
	}
	f.fallback, f.fallbackHex = c, shade.FormatColor(c)
}

// FallbackColor returns the fallback fill as lowercase "#rrggbb".
func (f *Fader) FallbackColor() string { return f.fallbackHex }

// Output returns what the scene should draw with this frame.
func (f *Fader) Output() Output {
	o := Output{
		FadeProgress: 1,
		Rotation:     f.rotation,
		Blurriness:   f.blur,
		Fallback:     f.fallback,
	}
	if !f.enabled || f.closed {
		return o
	}
	a := f.authoritative()
	if a == nil {
		return o
	}
	o.EnvMap = a.refl
	o.Intensity = f.strength
	if f.background {
		o.BackgroundTexture = a.tex
	}
	if f.fading {
		o.FadeFrom, o.FadeTo = f.low.refl, f.high.refl
		o.FadeProgress = f.progress
	}
	return o
}

// CurrentPreset returns the id of the environment on screen.
func (f *Fader) CurrentPreset() string {
	if a := f.authoritative(); a != nil {
		return a.id
	}
	return ""
}

// Presets returns the catalog.
func (f *Fader) Presets() []Preset { return f.catalog.Presets() }

// Cached reports whether the full-resolution panorama for id is loaded.
func (f *Fader) Cached(id string) bool {
	_, ok := f.cache[id]
	return ok
}

// State returns a snapshot of the fader.
func (f *Fader) State() State {
	s := State{
		ActivePresetID:    f.CurrentPreset(),
		LoadingPresetID:   f.loading,
		FadeProgress:      f.progress,
		Fading:            f.fading,
		RotationDegrees:   f.rotation,
		RotationPending:   f.pendingRotation != nil,
		Strength:          f.strength,
		Blurriness:        f.blur,
		BlurPending:       f.pendingBlur != nil,
		BackgroundEnabled: f.background,
		Enabled:           f.enabled,
	}
	if f.high != nil {
		s.FullRes, s.FullResReflection = f.high.tex, f.high.refl
	}
	if f.low != nil {
		s.LowRes, s.LowResReflection = f.low.tex, f.low.refl
	}
	return s
}

// Close cancels in-flight loads and releases every texture the fader
// owns.
func (f *Fader) Close() {
	if f.closed {
		return
	}
	f.token++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if f.loading != "" {
		f.resolve(Resolution{PresetID: f.loading, Err: ErrClosed})
	}
	f.closed = true
	f.stop()
drain:
	for {
		select {
		case m := <-f.mailbox:
			m.entry.dispose()
		default:
			break drain
		}
	}
	f.dropTransient()
	for _, e := range f.cache {
		e.dispose()
	}
	f.cache = make(map[string]*entry)
	f.low, f.high = nil, nil
}

// load runs on the executor. It touches only immutable fader fields and
// the mailbox.
func (f *Fader) load(ctx context.Context, token uint64, p Preset) {
	failed := func(err error) {
		f.post(ctx, message{token: token, kind: msgFailed, err: fmt.Errorf("preset %s: %w", p.ID, err)})
	}
	defer func() {
		if r := recover(); r != nil {
			failed(fmt.Errorf("%w: %v", ErrLoadPanic, r))
		}
	}()

	data, err := f.fetcher.Fetch(ctx, p.SourceURL)
	if err != nil {
		failed(err)
		return
	}
	full, preview, err := Decode(data, p.Encoding)
	if err != nil {
		failed(err)
		return
	}

	previewMap, err := NewReflectionMap(ctx, preview, f.levels)
	if err != nil {
		full.Dispose()
		preview.Dispose()
		failed(err)
		return
	}
	low := &entry{id: p.ID, tex: preview, refl: previewMap, mood: p.Mood, transient: true}
	if !f.post(ctx, message{token: token, kind: msgPreview, entry: low}) {
		full.Dispose()
		return
	}

	fullMap, err := NewReflectionMap(ctx, full, f.levels)
	if err != nil {
		full.Dispose()
		failed(err)
		return
	}
	f.post(ctx, message{token: token, kind: msgFull, entry: &entry{id: p.ID, tex: full, refl: fullMap, mood: p.Mood}})
}

// post hands m to the render goroutine. Results for a cancelled load are
// released instead.
func (f *Fader) post(ctx context.Context, m message) bool {
	if ctx.Err() != nil {
		m.entry.dispose()
		return false
	}
	select {
	case f.mailbox <- m:
		return true
	case <-ctx.Done():
		m.entry.dispose()
		return false
	}
}
