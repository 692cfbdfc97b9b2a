package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smukkama/openweather-panel/internal/forecast"
	"github.com/smukkama/openweather-panel/internal/location"
	"github.com/smukkama/openweather-panel/internal/owm"
	"github.com/smukkama/openweather-panel/internal/render"
	"github.com/smukkama/openweather-panel/internal/units"
)

// Timer ids owned by a pipeline
const (
	TimerCurrent  = "current"
	TimerForecast = "forecast"
	TimerProbe    = "probe"
	TimerStartup  = "startup"
)

const (
	// MinCurrentInterval is the floor for the current weather refresh
	MinCurrentInterval = 10 * time.Minute
	// MinForecastInterval is the floor for the forecast refresh
	MinForecastInterval = time.Hour
	// RetryInterval is used after a failed fetch
	RetryInterval = 10 * time.Minute
	// ManualRefreshCooldown is the minimum gap between manual refreshes
	ManualRefreshCooldown = 2 * time.Minute
	// ProbeDelay is the wait before the first reachability probe
	ProbeDelay = 1250 * time.Millisecond

	probeTimeout = 10 * time.Second
	cacheTimeout = 2 * time.Second
)

// probeBackoff is indexed by attempts already retried
var probeBackoff = [...]time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}

const notifyTitle = "OpenWeather"

// User-facing messages
const (
	MsgMissingKey      = "Openweathermap.org does not work without an api-key. Either enable the default key or register at https://openweathermap.org/appid and set OWM_API_KEY."
	MsgInvalidLocation = "Invalid location! Please try to recreate it."
	MsgThrottled       = "Manual refreshes less than 2 minutes apart are ignored!"
)

var (
	ErrRefreshThrottled = &PipelineError{"manual refresh throttled"}
	ErrNoLocation       = &PipelineError{"no location selected"}
)

// PipelineError represents a pipeline error
type PipelineError struct {
	msg string
}

func (e *PipelineError) Error() string {
	return e.msg
}

// Settings holds the user preferences the pipeline depends on
type Settings struct {
	ForecastDisabled     bool
	ForecastDays         int
	CurrentInterval      time.Duration
	ForecastInterval     time.Duration
	StartupDelay         time.Duration
	ProviderTranslations bool
	Language             string
	Render               render.Options
	Formatter            *units.Formatter
}

func (s Settings) normalize() Settings {
	if s.ForecastDays < 0 {
		s.ForecastDays = 0
	}
	if s.ForecastDays > forecast.MaxDays {
		s.ForecastDays = forecast.MaxDays
	}
	if s.CurrentInterval < MinCurrentInterval {
		s.CurrentInterval = MinCurrentInterval
	}
	if s.ForecastInterval < MinForecastInterval {
		s.ForecastInterval = MinForecastInterval
	}
	if s.StartupDelay < 0 {
		s.StartupDelay = 0
	}
	if s.Formatter == nil {
		s.Formatter = units.NewFormatter(s.Language)
	}
	s.Render.ProviderTranslations = s.ProviderTranslations
	return s
}

// Views is the last rendered state, replayed to new subscribers
type Views struct {
	Refreshing     bool
	Panel          *render.PanelView
	Current        *render.CurrentView
	Today          []render.ItemView
	Days           []render.DayView
	ForecastHidden bool
}

// Config wires a pipeline's collaborators
type Config struct {
	Provider  Provider
	Display   Display
	Notifier  Notifier
	Scheduler Scheduler
	Prober    Prober
	Cache     SnapshotCache
	Settings  Settings
	Now       func() time.Time
}

// Pipeline fetches, caches and renders weather for the active location
type Pipeline struct {
	id        string
	provider  Provider
	display   Display
	notifier  Notifier
	scheduler Scheduler
	prober    Prober
	cache     SnapshotCache
	now       func() time.Time

	mu       sync.Mutex
	settings Settings
	renderer *render.Renderer
	location location.Location
	hasLoc   bool
	warned   map[string]bool

	current     *owm.CurrentWeather
	forecastRaw *owm.ForecastResponse
	today       []owm.ForecastEntry
	days        [][]owm.ForecastEntry
	views       Views

	lastCurrentFetch  time.Time
	lastForecastFetch time.Time
	lastManualRefresh time.Time

	fetchingCurrent  bool
	fetchingForecast bool

	probeRetries int
	connected    bool
	wasConnected bool

	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a pipeline. Cache and Prober are optional.
func New(cfg Config) *Pipeline {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	settings := cfg.Settings.normalize()
	return &Pipeline{
		id:        uuid.New().String()[:8],
		provider:  cfg.Provider,
		display:   cfg.Display,
		notifier:  cfg.Notifier,
		scheduler: cfg.Scheduler,
		prober:    cfg.Prober,
		cache:     cfg.Cache,
		now:       now,
		settings:  settings,
		renderer:  render.NewRenderer(settings.Formatter, settings.Render),
		warned:    make(map[string]bool),
		ctx:       context.Background(),
	}
}

// ID returns the pipeline's log prefix
func (p *Pipeline) ID() string {
	return p.id
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	log.Printf("[pipeline %s] "+format, append([]interface{}{p.id}, args...)...)
}

// Start seeds views from the cache and begins the connectivity check. The
// first successful probe triggers the initial fetch.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true
	delay := p.settings.StartupDelay
	provider := p.provider
	p.mu.Unlock()

	p.warnMissingKey(provider)

	p.seedFromCache(ctx)

	if delay > 0 {
		p.logf("Delaying startup by %v", delay)
		p.after(TimerStartup, delay, p.CheckConnection)
		return
	}
	p.CheckConnection()
}

// Stop cancels every pending timer. Fetches completing afterwards are
// dropped.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	for _, id := range []string{TimerCurrent, TimerForecast, TimerProbe, TimerStartup} {
		p.scheduler.Cancel(id)
	}
	p.logf("Stopped")
}

func (p *Pipeline) warnMissingKey(provider Provider) {
	if k, ok := provider.(interface{ HasKey() bool }); ok && !k.HasKey() {
		p.notify(MsgMissingKey)
	}
}

// SetProvider replaces the weather provider and refetches the active
// location with it. Fetches already in flight finish on the old provider.
func (p *Pipeline) SetProvider(ctx context.Context, provider Provider) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.provider = provider
	hasLoc := p.hasLoc
	p.mu.Unlock()

	p.logf("Provider replaced")
	p.warnMissingKey(provider)
	if !hasLoc {
		return nil
	}
	p.showRefreshing()
	return p.Init(ctx)
}

func (p *Pipeline) baseContext() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}

func (p *Pipeline) after(id string, d time.Duration, fn func()) {
	if err := p.scheduler.After(id, d, fn); err != nil {
		p.logf("Failed to schedule %s: %v", id, err)
	}
}

func (p *Pipeline) notify(message string) {
	if p.notifier != nil {
		p.notifier.Notify(notifyTitle, message)
	}
}

// language returns the lang parameter for requests. Caller holds mu.
func (p *Pipeline) language() string {
	if p.settings.ProviderTranslations {
		return p.settings.Language
	}
	return ""
}

// Init refreshes current weather and, unless disabled, the forecast
func (p *Pipeline) Init(ctx context.Context) error {
	errCurrent := p.RefreshCurrent(ctx)

	p.mu.Lock()
	disabled := p.settings.ForecastDisabled
	p.mu.Unlock()

	if disabled {
		return errCurrent
	}
	return errors.Join(errCurrent, p.RefreshForecast(ctx))
}

// RefreshCurrent fetches and renders current conditions. A failure is
// logged and retried after RetryInterval. A result for a location that is
// no longer active is discarded and the active one fetched instead.
func (p *Pipeline) RefreshCurrent(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped || p.fetchingCurrent {
		p.mu.Unlock()
		return nil
	}
	if !p.hasLoc {
		p.mu.Unlock()
		return ErrNoLocation
	}
	p.fetchingCurrent = true
	loc := p.location
	lang := p.language()
	provider := p.provider
	p.mu.Unlock()

	cw, err := provider.Current(ctx, loc.Coordinate(), lang)

	p.mu.Lock()
	p.fetchingCurrent = false
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	if p.location.Coordinate() != loc.Coordinate() {
		p.mu.Unlock()
		p.logf("Dropping current weather for %s, location changed", loc.Name)
		return p.RefreshCurrent(ctx)
	}
	if err != nil {
		p.mu.Unlock()
		p.logf("Current weather fetch for %s failed: %v", loc.Name, err)
		p.after(TimerCurrent, RetryInterval, p.currentTick)
		return fmt.Errorf("fetch current weather: %w", err)
	}

	p.current = cw
	p.lastCurrentFetch = p.now()
	interval := p.settings.CurrentInterval
	panel, view := p.renderCurrentLocked()
	p.mu.Unlock()

	p.after(TimerCurrent, interval, p.currentTick)
	p.display.ShowCurrent(panel, view)
	p.saveCache(ctx)
	return nil
}

// RefreshForecast fetches the forecast. When its first entry matches the
// cached payload nothing is re-rendered.
func (p *Pipeline) RefreshForecast(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped || p.settings.ForecastDisabled || p.fetchingForecast {
		p.mu.Unlock()
		return nil
	}
	if !p.hasLoc {
		p.mu.Unlock()
		return ErrNoLocation
	}
	p.fetchingForecast = true
	loc := p.location
	lang := p.language()
	provider := p.provider
	p.mu.Unlock()

	fr, err := provider.Forecast(ctx, loc.Coordinate(), lang)

	p.mu.Lock()
	p.fetchingForecast = false
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	if p.location.Coordinate() != loc.Coordinate() {
		p.mu.Unlock()
		p.logf("Dropping forecast for %s, location changed", loc.Name)
		return p.RefreshForecast(ctx)
	}
	if err != nil {
		p.mu.Unlock()
		p.logf("Forecast fetch for %s failed: %v", loc.Name, err)
		p.after(TimerForecast, RetryInterval, p.forecastTick)
		return fmt.Errorf("fetch forecast: %w", err)
	}

	p.lastForecastFetch = p.now()
	interval := p.settings.ForecastInterval
	if forecast.SameFirstEntry(p.forecastRaw, fr) {
		p.mu.Unlock()
		p.after(TimerForecast, interval, p.forecastTick)
		return nil
	}

	p.forecastRaw = fr
	p.today = forecast.Today(fr.List)
	dayCount := p.settings.ForecastDays
	p.days = forecast.Days(fr.List, p.now(), p.settings.Render.TimeZone, dayCount)
	today := p.renderTodayLocked()
	days := p.renderDaysLocked()
	p.mu.Unlock()

	p.after(TimerForecast, interval, p.forecastTick)
	p.display.ShowToday(today)
	if dayCount >= 1 {
		p.display.ShowForecast(days)
	}
	p.saveCache(ctx)
	return nil
}

func (p *Pipeline) currentTick() {
	p.RefreshCurrent(p.baseContext())
}

func (p *Pipeline) forecastTick() {
	p.RefreshForecast(p.baseContext())
}

// ManualRefresh re-fetches everything unless the last accepted manual
// refresh was less than ManualRefreshCooldown ago.
func (p *Pipeline) ManualRefresh(ctx context.Context) error {
	p.mu.Lock()
	now := p.now()
	if !p.lastManualRefresh.IsZero() && now.Sub(p.lastManualRefresh) < ManualRefreshCooldown {
		p.mu.Unlock()
		p.notify(MsgThrottled)
		return ErrRefreshThrottled
	}
	p.lastManualRefresh = now
	p.mu.Unlock()

	p.showRefreshing()
	return p.Init(ctx)
}

func (p *Pipeline) showRefreshing() {
	p.mu.Lock()
	p.views.Refreshing = true
	p.mu.Unlock()
	p.display.ShowRefreshing()
}

// ReloadCache re-renders cached snapshots with the current settings. When
// the forecast payload was dropped it is fetched again.
func (p *Pipeline) ReloadCache(ctx context.Context) error {
	p.mu.Lock()
	var (
		panel       render.PanelView
		view        render.CurrentView
		haveCurrent = p.current != nil
	)
	if haveCurrent {
		panel, view = p.renderCurrentLocked()
	}
	disabled := p.settings.ForecastDisabled
	needFetch := !disabled && p.forecastRaw == nil
	dayCount := p.settings.ForecastDays
	var (
		today []render.ItemView
		days  []render.DayView
	)
	if !disabled && !needFetch {
		today = p.renderTodayLocked()
		days = p.renderDaysLocked()
	}
	p.mu.Unlock()

	if haveCurrent {
		p.display.ShowCurrent(panel, view)
	}
	if disabled {
		return nil
	}
	if needFetch {
		return p.RefreshForecast(ctx)
	}
	p.display.ShowToday(today)
	if dayCount >= 1 {
		p.display.ShowForecast(days)
	}
	return nil
}

// ClearCache drops every snapshot, in memory and in the snapshot cache
func (p *Pipeline) ClearCache(ctx context.Context) {
	p.mu.Lock()
	p.clearLocked()
	key, hasLoc := p.cacheKeyLocked()
	p.mu.Unlock()

	if p.cache != nil && hasLoc {
		cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
		defer cancel()
		if err := p.cache.Delete(cctx, key); err != nil {
			p.logf("Failed to clear snapshot cache: %v", err)
		}
	}
}

func (p *Pipeline) clearLocked() {
	p.current = nil
	p.forecastRaw = nil
	p.today = nil
	p.days = nil
}

// SetLocation switches the active location. A changed coordinate clears
// the cache and re-fetches; a rename only re-renders.
func (p *Pipeline) SetLocation(ctx context.Context, loc location.Location) error {
	if loc.Invalid {
		p.mu.Lock()
		first := !p.warned[loc.Raw]
		p.warned[loc.Raw] = true
		p.mu.Unlock()
		if first {
			p.notify(MsgInvalidLocation)
		}
		return fmt.Errorf("location %q: %w", loc.Raw, location.ErrInvalidLocation)
	}

	p.mu.Lock()
	changed := !p.hasLoc || loc.Coordinate() != p.location.Coordinate()
	p.location = loc
	p.hasLoc = true
	started := p.started && !p.stopped
	p.mu.Unlock()

	if !started {
		return nil
	}
	if !changed {
		return p.ReloadCache(ctx)
	}

	p.logf("Location changed to %s", loc.Name)
	p.showRefreshing()
	p.ClearCache(ctx)
	return p.Init(ctx)
}

// Location returns the active location
func (p *Pipeline) Location() (location.Location, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location, p.hasLoc
}

// ApplySettings installs new settings and refreshes whatever they affect
func (p *Pipeline) ApplySettings(ctx context.Context, s Settings) error {
	s = s.normalize()

	p.mu.Lock()
	old := p.settings
	p.settings = s
	p.renderer = render.NewRenderer(s.Formatter, s.Render)
	lastCurrent, lastForecast := p.lastCurrentFetch, p.lastForecastFetch
	p.mu.Unlock()

	p.tighten(TimerCurrent, lastCurrent, old.CurrentInterval, s.CurrentInterval, p.currentTick)
	p.tighten(TimerForecast, lastForecast, old.ForecastInterval, s.ForecastInterval, p.forecastTick)

	switch {
	case old.ForecastDisabled != s.ForecastDisabled:
		if s.ForecastDisabled {
			p.scheduler.Cancel(TimerForecast)
			p.hideForecast()
		}
		p.ClearCache(ctx)
		return p.Init(ctx)

	case old.ForecastDays != s.ForecastDays:
		switch {
		case old.ForecastDays >= 1 && s.ForecastDays == 0:
			p.mu.Lock()
			p.days = nil
			p.mu.Unlock()
			p.hideForecast()
			return nil
		case old.ForecastDays == 0 && s.ForecastDays >= 1:
			p.ClearCache(ctx)
			return p.Init(ctx)
		default:
			p.mu.Lock()
			p.forecastRaw = nil
			p.mu.Unlock()
			return p.ReloadCache(ctx)
		}

	case old.ProviderTranslations != s.ProviderTranslations:
		if s.ProviderTranslations {
			p.showRefreshing()
			p.ClearCache(ctx)
			return p.Init(ctx)
		}
		return p.ReloadCache(ctx)
	}

	return p.ReloadCache(ctx)
}

// tighten moves a pending refresh earlier when its interval shrank, counting
// from the last successful fetch
func (p *Pipeline) tighten(id string, last time.Time, oldInterval, newInterval time.Duration, fn func()) {
	if newInterval >= oldInterval || last.IsZero() {
		return
	}
	if !p.scheduler.Cancel(id) {
		return
	}
	wait := newInterval - p.now().Sub(last)
	if wait < 0 {
		wait = 0
	}
	p.logf("Interval for %s shortened to %v, next run in %v", id, newInterval, wait)
	p.after(id, wait, fn)
}

func (p *Pipeline) hideForecast() {
	p.mu.Lock()
	p.views.ForecastHidden = true
	p.views.Days = nil
	p.mu.Unlock()
	p.display.HideForecast()
}

// CheckConnection probes the provider after ProbeDelay, retrying after
// 10s, 30s and 60s before giving up until the next call.
func (p *Pipeline) CheckConnection() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.probeRetries = len(probeBackoff)
	p.wasConnected = p.connected
	p.connected = false
	p.mu.Unlock()

	p.after(TimerProbe, ProbeDelay, p.probe)
}

// NetworkChanged reacts to a network state change
func (p *Pipeline) NetworkChanged() {
	p.CheckConnection()
}

// Connected reports the result of the last probe
func (p *Pipeline) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Pipeline) probe() {
	base := p.baseContext()
	var err error
	if p.prober != nil {
		ctx, cancel := context.WithTimeout(base, probeTimeout)
		err = p.prober.Probe(ctx)
		cancel()
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if err != nil {
		var next time.Duration
		if p.probeRetries > 0 {
			next = probeBackoff[len(probeBackoff)-p.probeRetries]
			p.probeRetries--
		}
		p.mu.Unlock()
		p.logf("Probe failed: %v", err)
		if next > 0 {
			p.after(TimerProbe, next, p.probe)
		}
		return
	}

	p.connected = true
	reconnected := !p.wasConnected
	p.wasConnected = true
	if reconnected {
		now := p.now()
		if !p.lastCurrentFetch.IsZero() && now.Sub(p.lastCurrentFetch) > p.settings.CurrentInterval {
			p.current = nil
		}
		if !p.settings.ForecastDisabled && !p.lastForecastFetch.IsZero() && now.Sub(p.lastForecastFetch) > p.settings.ForecastInterval {
			p.today = nil
			p.days = nil
		}
		p.forecastRaw = nil
	}
	p.mu.Unlock()

	if reconnected {
		p.logf("Provider reachable, refreshing")
		p.Init(base)
	}
}

// Views returns a copy of the last rendered views
func (p *Pipeline) Views() Views {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := p.views
	if v.Panel != nil {
		panel := *v.Panel
		v.Panel = &panel
	}
	if v.Current != nil {
		current := *v.Current
		v.Current = &current
	}
	v.Today = append([]render.ItemView(nil), v.Today...)
	v.Days = append([]render.DayView(nil), v.Days...)
	return v
}

func (p *Pipeline) renderCurrentLocked() (render.PanelView, render.CurrentView) {
	panel := p.renderer.Panel(p.current)
	view := p.renderer.Current(p.current, p.location.Name, p.now())
	if p.current.ID != 0 {
		view.CityURL = p.provider.CityURL(p.current.ID)
	}
	p.views.Refreshing = false
	p.views.Panel = &panel
	p.views.Current = &view
	return panel, view
}

func (p *Pipeline) renderTodayLocked() []render.ItemView {
	items := p.renderer.Today(p.today)
	p.views.Today = items
	return items
}

func (p *Pipeline) renderDaysLocked() []render.DayView {
	days := p.renderer.Days(p.days, p.now())
	p.views.Days = days
	p.views.ForecastHidden = p.settings.ForecastDisabled || p.settings.ForecastDays == 0
	return days
}

func (p *Pipeline) cacheKeyLocked() (string, bool) {
	if !p.hasLoc {
		return "", false
	}
	return p.location.Coordinate().String(), true
}

func (p *Pipeline) saveCache(ctx context.Context) {
	if p.cache == nil {
		return
	}
	p.mu.Lock()
	key, ok := p.cacheKeyLocked()
	snap := &Snapshot{
		Current:    p.current,
		CurrentAt:  p.lastCurrentFetch,
		Forecast:   p.forecastRaw,
		ForecastAt: p.lastForecastFetch,
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := p.cache.Save(cctx, key, snap); err != nil {
		p.logf("Failed to save snapshot: %v", err)
	}
}

func (p *Pipeline) seedFromCache(ctx context.Context) {
	if p.cache == nil {
		return
	}
	p.mu.Lock()
	key, ok := p.cacheKeyLocked()
	p.mu.Unlock()
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	snap, err := p.cache.Load(cctx, key)
	cancel()
	if err != nil {
		p.logf("Failed to load snapshot: %v", err)
		return
	}
	if snap == nil {
		return
	}

	var (
		panel    render.PanelView
		view     render.CurrentView
		today    []render.ItemView
		days     []render.DayView
		dayCount int
	)
	p.mu.Lock()
	haveCurrent := snap.Current != nil
	haveForecast := snap.Forecast != nil && !p.settings.ForecastDisabled
	if haveCurrent {
		p.current = snap.Current
		p.lastCurrentFetch = snap.CurrentAt
		panel, view = p.renderCurrentLocked()
	}
	if haveForecast {
		dayCount = p.settings.ForecastDays
		p.forecastRaw = snap.Forecast
		p.lastForecastFetch = snap.ForecastAt
		p.today = forecast.Today(snap.Forecast.List)
		p.days = forecast.Days(snap.Forecast.List, p.now(), p.settings.Render.TimeZone, dayCount)
		today = p.renderTodayLocked()
		days = p.renderDaysLocked()
	}
	p.mu.Unlock()

	p.logf("Seeded views from snapshot cache")
	if haveCurrent {
		p.display.ShowCurrent(panel, view)
	}
	if haveForecast {
		p.display.ShowToday(today)
		if dayCount >= 1 {
			p.display.ShowForecast(days)
		}
	}
}
