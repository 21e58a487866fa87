package mpdconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"euphonica-core/internal/eventbus"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/google/uuid"
)

// Reserved inter-client channel control words (spec.md §6 GLOSSARY).
const (
	controlWake = "WAKE"
	controlStop = "STOP"
)

// Manager is the Connection Manager (spec.md §4.1): it owns the
// foreground client (synchronous commands from the UI context) and the
// background client (idle/task worker on its own goroutine), and
// coordinates them through the daemon's inter-client message channel.
type Manager struct {
	addr         string
	password     string
	pingInterval time.Duration
	bus          *eventbus.Bus

	state   *ClientState
	channel string // subscription name: fresh UUID per session

	mu         sync.Mutex
	fg         *mpd.Client
	bgStop     chan struct{}
	bgDone     chan struct{}
	tasks      chan *Task
	queueDepth int

	queueCache *QueueCache
}

// New returns an unconnected Manager. addr is "host:port".
func New(addr, password string, pingInterval time.Duration, bus *eventbus.Bus) *Manager {
	return &Manager{
		addr:         addr,
		password:     password,
		pingInterval: pingInterval,
		bus:          bus,
		state:        newClientState(),
		channel:      "euphonica-" + uuid.New().String(),
		tasks:        make(chan *Task, 256),
		queueCache:   NewQueueCache(512),
	}
}

// State returns a snapshot of the current connection state.
func (m *Manager) State() Snapshot {
	return m.state.snapshot()
}

func (m *Manager) publishState() {
	m.bus.Publish(eventbus.TopicConnectionState, m.state.snapshot())
}

// Connect dials both clients and starts the background worker. Tearing
// down any existing clients first, per spec.md §4.1 ("every reconnect
// first tears down both clients, then re-establishes").
func (m *Manager) Connect(ctx context.Context) error {
	m.teardown()

	m.setState(Connecting)

	fg, err := m.dial()
	if err != nil {
		m.setState(NotConnected)
		return fmt.Errorf("mpdconn: foreground dial: %w", err)
	}

	bg, err := m.dial()
	if err != nil {
		fg.Close()
		m.setState(NotConnected)
		return fmt.Errorf("mpdconn: background dial: %w", err)
	}

	if err := bg.Subscribe(m.channel); err != nil {
		fg.Close()
		bg.Close()
		m.setState(NotConnected)
		return fmt.Errorf("mpdconn: subscribe inter-client channel: %w", err)
	}

	m.mu.Lock()
	m.fg = fg
	m.bgStop = make(chan struct{})
	m.bgDone = make(chan struct{})
	m.mu.Unlock()

	m.setState(Connected)

	go m.runBackground(bg, m.bgStop, m.bgDone)
	go m.runKeepalive(m.bgStop)

	return nil
}

func (m *Manager) dial() (*mpd.Client, error) {
	if m.password != "" {
		return mpd.DialAuthenticated("tcp", m.addr, m.password)
	}
	return mpd.Dial("tcp", m.addr)
}

func (m *Manager) setState(s ConnectionState) {
	if _, changed := m.state.setState(s); changed {
		m.publishState()
	}
}

// Disconnect posts STOP on the inter-client channel, closes the
// foreground client, and waits for the background worker to observe
// STOP on its next idle return and exit (spec.md §4.1 Shutdown, §8
// scenario 6: returns within one idle round-trip).
func (m *Manager) Disconnect() {
	m.mu.Lock()
	fg := m.fg
	bgStop := m.bgStop
	bgDone := m.bgDone
	m.mu.Unlock()

	if fg == nil {
		return
	}

	_ = fg.SendMessage(m.channel, controlStop)
	if bgStop != nil {
		close(bgStop)
	}
	if bgDone != nil {
		<-bgDone
	}

	m.teardown()
	m.setState(NotConnected)
}

func (m *Manager) teardown() {
	m.mu.Lock()
	fg := m.fg
	m.fg = nil
	m.mu.Unlock()
	if fg != nil {
		fg.Close()
	}
}

// EnqueueTask appends task to the background queue and wakes the
// background client if it is currently idling (spec.md §4.1 Wake
// protocol).
func (m *Manager) EnqueueTask(task *Task) {
	m.tasks <- task
	m.mu.Lock()
	fg := m.fg
	m.mu.Unlock()
	if fg != nil {
		_ = fg.SendMessage(m.channel, controlWake)
	}
}

// runKeepalive sends periodic pings on the foreground client so idle
// transport errors on an otherwise-unused connection surface promptly
// (spec.md §4.1: "sends periodic keepalive pings at a configurable
// interval").
func (m *Manager) runKeepalive(stop <-chan struct{}) {
	if m.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			fg := m.fg
			m.mu.Unlock()
			if fg == nil {
				return
			}
			if err := fg.Ping(); err != nil {
				m.bus.Publish(eventbus.TopicError, &IOError{Err: err})
				go func() {
					_ = m.Connect(context.Background())
				}()
				return
			}
		}
	}
}
