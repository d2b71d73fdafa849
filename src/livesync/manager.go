package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"live-stats/src/helpers"
	"live-stats/src/interfaces"
	"live-stats/src/logger"
	"live-stats/src/metrics"
	"live-stats/src/models"
	"live-stats/src/utils"

	"github.com/juju/clock"
)

const (
	DefaultPollInterval   = 5 * time.Second
	MinHiddenPollInterval = 10 * time.Second
	statusHistorySize     = 64
)

// -----------------------------------------------------------------------------

// Options configures a StreamManager. Zero values fall back to defaults.
type Options struct {
	BaseURL            string
	StreamPath         string
	PollInterval       time.Duration
	HiddenPollInterval time.Duration
	StartHidden        bool

	Clock   clock.Clock
	Backoff *Backoff
	Metrics *metrics.Collector
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

// StreamManager keeps one live snapshot in sync with the server. It prefers a
// push stream, falls back to polling while the stream is down or the client is
// hidden, and reconnects with exponential backoff.
//
// Every state change happens in handle, under mu. Transports, fetches and
// timers run on their own goroutines and only post events.
type StreamManager struct {
	source      interfaces.ISnapshotSource
	subscriber  interfaces.IStreamSubscriber
	credentials interfaces.ICredentialProvider
	opts        Options
	clock       clock.Clock
	logger      *logger.Logger
	metrics     *metrics.Collector

	mu         sync.Mutex
	running    bool
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	params     models.MParams
	credential string
	hidden     bool

	status    models.ConnectionStatus
	snapshot  *models.MSnapshot
	lastError string
	version   uint64
	updatedAt time.Time

	dedup    *DedupWindow
	backoff  *Backoff
	poller   *Poller
	overlays *OverlayTracker

	conn            *connection
	connSerial      uint64
	reconnectTimer  clock.Timer
	reconnectSerial uint64
	reconnectDelay  time.Duration
	history         *utils.RingBuffer[models.MStatusChange]
	watchers        map[int]chan models.MLiveView
	nextWatcher     int
	stats           models.MSyncMetrics
}

type connection struct {
	serial uint64
	cancel context.CancelFunc
	stream interfaces.IStream
}

// -----------------------------------------------------------------------------

// NewStreamManager wires the collaborators. subscriber and credentials may be nil:
// without a subscriber the manager only polls.
func NewStreamManager(source interfaces.ISnapshotSource, subscriber interfaces.IStreamSubscriber, credentials interfaces.ICredentialProvider, opts Options) *StreamManager {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	if opts.Backoff == nil {
		opts.Backoff = NewBackoff()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewLogger(nil, "StreamManager")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	opts.HiddenPollInterval = max(opts.HiddenPollInterval, opts.PollInterval, MinHiddenPollInterval)

	m := &StreamManager{
		source:      source,
		subscriber:  subscriber,
		credentials: credentials,
		opts:        opts,
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		hidden:      opts.StartHidden,
		status:      models.StatusIdle,
		dedup:       NewDedupWindow(DedupCapacity),
		backoff:     opts.Backoff,
		overlays:    NewOverlayTracker(opts.Clock),
		history:     utils.NewRingBuffer[models.MStatusChange](statusHistorySize),
		watchers:    make(map[int]chan models.MLiveView),
	}
	m.poller = NewPoller(opts.Clock, m.pollDue)
	m.metrics.SetStatus(m.status)
	return m
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start loads a full snapshot and opens the live stream for params.
// It is a no-op while the manager is already running.
func (m *StreamManager) Start(params models.MParams) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.logger.Debug("Start ignored: already running for %+v", m.params)
		return
	}
	m.startLocked(params)
}

// -----------------------------------------------------------------------------

// Stop closes the connection and cancels every timer. Results of work started
// before Stop are discarded. Safe to call more than once.
func (m *StreamManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// -----------------------------------------------------------------------------

// Restart tears the connection down and starts over, re-reading the credential.
// The stored snapshot is dropped when the scope changes.
func (m *StreamManager) Restart(params models.MParams) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restartLocked(params)
}

func (m *StreamManager) restartLocked(params models.MParams) {
	m.stopLocked()
	if params != m.params {
		m.snapshot = nil
	}
	m.startLocked(params)
}

// restartIfRunningLocked restarts with the current params. A stopped manager
// stays stopped.
func (m *StreamManager) restartIfRunningLocked() bool {
	if !m.running {
		return false
	}
	m.restartLocked(m.params)
	return true
}

// -----------------------------------------------------------------------------

// SetVisible forwards a foreground/background transition to the manager.
func (m *StreamManager) SetVisible(visible bool) {
	m.dispatch(event{kind: eventVisibility, visible: visible})
}

// -----------------------------------------------------------------------------

// WatchCredentials restarts the stream whenever the credential changes, until ctx ends.
func (m *StreamManager) WatchCredentials(ctx context.Context) {
	if m.credentials == nil {
		return
	}
	changes := m.credentials.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			m.mu.Lock()
			if m.restartIfRunningLocked() {
				m.logger.Info("Credential changed, stream restarted")
			}
			m.mu.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------

func (m *StreamManager) startLocked(params models.MParams) {
	m.running = true
	m.generation++
	m.params = params
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.dedup.Clear()
	m.backoff.Reset()
	m.credential = ""
	if m.credentials != nil {
		m.credential = m.credentials.CurrentCredential()
	}
	m.logger.Info("Starting live sync (country=%q, locale=%q, generation=%d)", params.Country, params.Locale, m.generation)

	go m.fetch(m.ctx, m.generation, 0, params)

	if m.hidden {
		m.setStatusLocked(models.StatusPolling)
		m.poller.Start(m.opts.HiddenPollInterval)
		return
	}
	m.connectLocked()
}

// -----------------------------------------------------------------------------

func (m *StreamManager) stopLocked() {
	if !m.running {
		return
	}
	m.running = false
	m.generation++
	m.closeConnLocked()
	m.cancelReconnectLocked()
	m.poller.Stop()
	m.cancel()
	m.setStatusLocked(models.StatusIdle)
	m.logger.Info("Live sync stopped")
}

// -----------------------------------------------------------------------------
// Event handling
// -----------------------------------------------------------------------------

func (m *StreamManager) dispatch(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle(ev)
}

// -----------------------------------------------------------------------------

// handle is the only transition function. Callers hold mu.
func (m *StreamManager) handle(ev event) {
	if ev.kind == eventVisibility {
		m.setVisibleLocked(ev.visible)
		return
	}

	if !m.running || ev.generation != m.generation {
		if ev.stream != nil {
			ev.stream.Close()
		}
		m.logger.Debug("Dropping stale %s event (generation %d, current %d)", ev.kind, ev.generation, m.generation)
		return
	}

	switch ev.kind {
	case eventOpened:
		if m.conn == nil || m.conn.serial != ev.conn {
			ev.stream.Close()
			return
		}
		m.conn.stream = ev.stream
		m.poller.Stop()
		m.backoff.Reset()
		m.lastError = ""
		m.setStatusLocked(models.StatusConnected)
		m.logger.Info("Live stream connected via %s", m.subscriber.Name())

	case eventMessage:
		if m.conn == nil || m.conn.serial != ev.conn {
			return
		}
		m.applyMessageLocked(ev.message)

	case eventFailed:
		if m.conn == nil || m.conn.serial != ev.conn {
			return
		}
		m.failLocked(ev.err)

	case eventFetched:
		m.applyFetchLocked(ev)

	case eventPollDue:
		if m.poller.Due(ev.poll) {
			go m.fetch(m.ctx, m.generation, ev.poll, m.params)
		}

	case eventReconnectDue:
		if ev.reconnect != m.reconnectSerial || m.reconnectTimer == nil {
			return
		}
		m.reconnectTimer = nil
		m.connectLocked()
	}
}

// -----------------------------------------------------------------------------

func (m *StreamManager) connectLocked() {
	if m.hidden || m.conn != nil {
		return
	}
	if m.subscriber == nil {
		m.pollOnlyLocked("no stream transport configured")
		return
	}

	target, err := BuildStreamURL(m.opts.BaseURL, m.opts.StreamPath, m.params, m.credential)
	if err != nil {
		m.pollOnlyLocked(err.Error())
		return
	}

	if m.backoff.Attempt() == 0 {
		m.setStatusLocked(models.StatusConnecting)
	} else {
		m.setStatusLocked(models.StatusReconnecting)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.connSerial++
	m.conn = &connection{serial: m.connSerial, cancel: cancel}

	go m.runConnection(ctx, m.generation, m.connSerial, target)
}

// -----------------------------------------------------------------------------

// runConnection opens the stream and pumps its messages into the event handler.
func (m *StreamManager) runConnection(ctx context.Context, generation, serial uint64, target string) {
	stream, err := m.subscriber.Subscribe(ctx, target)
	if err != nil {
		m.dispatch(event{kind: eventFailed, generation: generation, conn: serial, err: err})
		return
	}
	m.dispatch(event{kind: eventOpened, generation: generation, conn: serial, stream: stream})

	for {
		msg, err := stream.Next()
		if err != nil {
			stream.Close()
			if ctx.Err() == nil {
				m.dispatch(event{kind: eventFailed, generation: generation, conn: serial, err: err})
			}
			return
		}
		if ctx.Err() != nil {
			stream.Close()
			return
		}
		m.dispatch(event{kind: eventMessage, generation: generation, conn: serial, message: msg})
	}
}

// -----------------------------------------------------------------------------

func (m *StreamManager) failLocked(err error) {
	if errors.Is(err, io.EOF) {
		err = helpers.NewTransportError("stream closed by server", err)
	}
	m.logger.Warning("Live stream failed: %v", err)
	m.closeConnLocked()

	m.setStatusLocked(models.StatusReconnecting)
	if !m.poller.Active() {
		m.poller.Start(m.opts.PollInterval)
	}

	delay := m.backoff.Next()
	m.scheduleReconnectLocked(delay)
	m.stats.Reconnects++
	m.metrics.Reconnect(delay)
}

// -----------------------------------------------------------------------------

// pollOnlyLocked is used when no live transport can be built at all.
func (m *StreamManager) pollOnlyLocked(reason string) {
	m.logger.Info("Live stream unavailable (%s), polling every %s", reason, m.opts.PollInterval)
	m.setStatusLocked(models.StatusPolling)
	if !m.poller.Active() {
		m.poller.Start(m.opts.PollInterval)
	}
}

// -----------------------------------------------------------------------------

func (m *StreamManager) scheduleReconnectLocked(delay time.Duration) {
	m.cancelReconnectLocked()
	m.reconnectSerial++
	m.reconnectDelay = delay

	ev := event{kind: eventReconnectDue, generation: m.generation, reconnect: m.reconnectSerial}
	m.reconnectTimer = m.clock.AfterFunc(delay, func() { m.dispatch(ev) })
	m.logger.Info("Reconnecting in %s (attempt %d)", delay.Round(time.Millisecond), m.backoff.Attempt())
}

func (m *StreamManager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// -----------------------------------------------------------------------------

func (m *StreamManager) closeConnLocked() {
	if m.conn == nil {
		return
	}
	m.conn.cancel()
	if m.conn.stream != nil {
		m.conn.stream.Close()
	}
	m.conn = nil
}

// -----------------------------------------------------------------------------

func (m *StreamManager) setVisibleLocked(visible bool) {
	if m.hidden == !visible {
		return
	}
	m.hidden = !visible
	if !m.running {
		return
	}

	if m.hidden {
		m.logger.Info("Client hidden, polling every %s", m.opts.HiddenPollInterval)
		m.closeConnLocked()
		m.cancelReconnectLocked()
		m.setStatusLocked(models.StatusPolling)
		m.poller.Start(m.opts.HiddenPollInterval)
		return
	}

	m.logger.Info("Client visible, reconnecting")
	m.poller.Stop()
	m.cancelReconnectLocked()
	m.backoff.Reset()
	m.connectLocked()
}

// -----------------------------------------------------------------------------

// applyMessageLocked runs one stream message through dedup and merge.
func (m *StreamManager) applyMessageLocked(msg models.MStreamMessage) {
	switch msg.Event {
	case "", "message", "stats":
	default:
		m.metrics.Message(metrics.ResultIgnored)
		return
	}

	var update models.MPartialUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		m.stats.MessagesMalformed++
		m.metrics.Message(metrics.ResultMalformed)
		m.logger.Debug("%v", helpers.NewDecodeError("malformed stream message", err))
		return
	}

	id := update.ID
	if id == "" {
		id = msg.ID
	}
	if m.dedup.Seen(id) {
		m.stats.MessagesDuplicate++
		m.metrics.Message(metrics.ResultDuplicate)
		return
	}
	m.dedup.Record(id)
	m.metrics.SetDedupSize(m.dedup.Len())

	next := Merge(m.snapshot, update)
	if next == nil {
		m.stats.MessagesRejected++
		m.metrics.Message(metrics.ResultRejected)
		m.logger.Debug("Incomplete update without a baseline, waiting for a full snapshot")
		return
	}

	if next.Equal(m.snapshot) {
		// Nothing changed: keep the version and any pending overlays.
		m.stats.MessagesUnchanged++
		m.metrics.Message(metrics.ResultUnchanged)
		return
	}

	m.stats.MessagesApplied++
	m.metrics.Message(metrics.ResultApplied)
	m.replaceSnapshotLocked(next)
}

// -----------------------------------------------------------------------------

func (m *StreamManager) applyFetchLocked(ev event) {
	if ev.poll != 0 {
		if !m.poller.Completed(ev.poll) {
			return
		}
		m.stats.PollFetches++
	}

	if ev.err != nil {
		if ev.poll != 0 {
			m.stats.PollFailures++
		}
		m.logger.Warning("Snapshot fetch failed: %v", ev.err)
		m.lastError = ev.err.Error()
		m.publishLocked()
		return
	}

	m.lastError = ""
	m.replaceSnapshotLocked(ev.snapshot)
}

// -----------------------------------------------------------------------------

func (m *StreamManager) replaceSnapshotLocked(snapshot *models.MSnapshot) {
	m.snapshot = snapshot
	if n := m.overlays.Supersede(m.clock.Now()); n > 0 {
		m.metrics.SetPendingOverlays(len(m.overlays.Pending()))
	}
	m.publishLocked()
}

// -----------------------------------------------------------------------------

// fetch loads a full snapshot. poll is 0 for the initial fetch.
func (m *StreamManager) fetch(ctx context.Context, generation, poll uint64, params models.MParams) {
	started := m.clock.Now()
	snapshot, err := m.source.FetchSnapshot(ctx, params)
	m.metrics.Fetch(m.clock.Now().Sub(started), err)

	if err == nil && snapshot == nil {
		err = helpers.NewFetchError("empty snapshot", nil)
	}
	m.dispatch(event{kind: eventFetched, generation: generation, poll: poll, snapshot: snapshot, err: err})
}

func (m *StreamManager) pollDue(serial uint64) {
	m.mu.Lock()
	generation := m.generation
	m.mu.Unlock()
	m.dispatch(event{kind: eventPollDue, generation: generation, poll: serial})
}

// -----------------------------------------------------------------------------

func (m *StreamManager) setStatusLocked(status models.ConnectionStatus) {
	if m.status == status {
		return
	}
	m.history.Append(models.MStatusChange{From: m.status, To: status, At: m.clock.Now()})
	m.logger.Debug("Status %s -> %s", m.status, status)
	m.status = status
	m.metrics.SetStatus(status)
	m.publishLocked()
}

// -----------------------------------------------------------------------------
// Read boundary
// -----------------------------------------------------------------------------

func (m *StreamManager) publishLocked() {
	m.version++
	m.updatedAt = m.clock.Now()

	view := m.viewLocked()
	for _, ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- view:
		default:
		}
	}
}

func (m *StreamManager) viewLocked() models.MLiveView {
	return models.MLiveView{
		Snapshot:   m.overlays.Apply(m.snapshot),
		Status:     m.status,
		Error:      m.lastError,
		Connecting: m.status == models.StatusConnecting || m.status == models.StatusReconnecting,
		Version:    m.version,
		UpdatedAt:  m.updatedAt,
	}
}

// -----------------------------------------------------------------------------

// View returns the current view, with pending overlays applied.
func (m *StreamManager) View() models.MLiveView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// Snapshot returns the stored authoritative snapshot, without overlays.
func (m *StreamManager) Snapshot() *models.MSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// -----------------------------------------------------------------------------

// Watch returns a channel that always holds the latest view. The channel is
// primed with the current view; cancel releases it.
func (m *StreamManager) Watch() (<-chan models.MLiveView, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextWatcher
	m.nextWatcher++
	ch := make(chan models.MLiveView, 1)
	ch <- m.viewLocked()
	m.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.watchers, id)
			close(ch)
		})
	}
	return ch, cancel
}

// -----------------------------------------------------------------------------

func (m *StreamManager) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *StreamManager) Params() models.MParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

func (m *StreamManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// StatusHistory returns recent transitions, oldest first.
func (m *StreamManager) StatusHistory() []models.MStatusChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.GetAll()
}

// -----------------------------------------------------------------------------

func (m *StreamManager) Metrics() models.MSyncMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.stats
	out.DedupWindowSize = m.dedup.Len()
	out.Generation = m.generation
	out.ReconnectAttempt = m.backoff.Attempt()
	return out
}

// -----------------------------------------------------------------------------
// Optimistic overlays
// -----------------------------------------------------------------------------

// IssueOverlay shows delta on category until the entry is resolved or an
// authoritative update arrives.
func (m *StreamManager) IssueOverlay(category string, delta int64) models.MOverlayEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.overlays.Issue(category, delta)
	m.metrics.SetPendingOverlays(len(m.overlays.Pending()))
	m.publishLocked()
	return entry
}

// ResolveOverlay drops the entry, whether the server accepted it or not.
func (m *StreamManager) ResolveOverlay(id string, accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed bool
	if accepted {
		removed = m.overlays.Confirm(id)
	} else {
		removed = m.overlays.Reject(id)
	}
	if removed {
		m.metrics.SetPendingOverlays(len(m.overlays.Pending()))
		m.publishLocked()
	}
}

func (m *StreamManager) PendingOverlays() []models.MOverlayEntry {
	return m.overlays.Pending()
}
