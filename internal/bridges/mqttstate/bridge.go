package mqttstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/homepanel-core/internal/activity"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/homepanel-core/internal/settings"
)

const (
	commandQueueSize  = 8
	activityQueueSize = 32

	// commandTimeout bounds one forwarded command, including the wait for
	// the session's in-flight slot.
	commandTimeout = 10 * time.Second
)

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Session is the path by which forwarded commands reach the device.
type Session interface {
	SendCommand(ctx context.Context, cmd device.Command) error
	Refresh(ctx context.Context) bool
}

// ThresholdSetter applies threshold changes. *settings.Thresholds satisfies it.
type ThresholdSetter interface {
	Set(ctx context.Context, celsius float64) (settings.Result, error)
}

// StateSource provides device state changes.
type StateSource interface {
	Subscribe(fn func(device.State)) (unsubscribe func())
}

// ActivitySource provides new activity entries.
type ActivitySource interface {
	Subscribe(fn func(activity.Entry)) (unsubscribe func())
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Bridge.
type Options struct {
	Client     MQTTClient
	Topics     mqtt.Topics
	QoS        byte
	Session    Session
	Thresholds ThresholdSetter
	Logger     Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Bridge publishes panel state to MQTT and forwards MQTT commands to the
// session.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	client     MQTTClient
	topics     mqtt.Topics
	qos        byte
	session    Session
	thresholds ThresholdSetter
	logger     Logger
	now        func() time.Time

	states   chan device.State
	entries  chan activity.Entry
	commands chan queuedCommand

	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	statsMu sync.Mutex
	stats   Stats
}

// Stats counts bridge traffic.
type Stats struct {
	StatesPublished  uint64 `json:"states_published"`
	EntriesPublished uint64 `json:"entries_published"`
	CommandsHandled  uint64 `json:"commands_handled"`
	CommandsFailed   uint64 `json:"commands_failed"`
	CommandsRejected uint64 `json:"commands_rejected"`
	PublishFailures  uint64 `json:"publish_failures"`
	ActivityDropped  uint64 `json:"activity_dropped"`
}

type queuedCommand struct {
	name    string
	payload []byte
}

// NewBridge creates a bridge. Call Start to subscribe and begin publishing.
func NewBridge(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	if opts.Topics.Node == "" {
		return nil, fmt.Errorf("node topic is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		client:     opts.Client,
		topics:     opts.Topics,
		qos:        opts.QoS,
		session:    opts.Session,
		thresholds: opts.Thresholds,
		logger:     logger,
		now:        now,
		states:     make(chan device.State, 1),
		entries:    make(chan activity.Entry, activityQueueSize),
		commands:   make(chan queuedCommand, commandQueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start subscribes to the node's command topics and starts the publisher
// and command goroutines.
func (b *Bridge) Start() error {
	var err error
	b.startOnce.Do(func() {
		topic := b.topics.AllCommands()
		if err = b.client.Subscribe(topic, b.qos, b.handleMessage); err != nil {
			err = fmt.Errorf("subscribe to commands: %w", err)
			return
		}
		b.logger.Info("subscribed to commands", "topic", topic)

		b.wg.Add(2)
		go b.publishLoop()
		go b.commandLoop()
	})
	return err
}

// Stop unsubscribes and waits for the bridge goroutines to finish.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if err := b.client.Unsubscribe(b.topics.AllCommands()); err != nil {
			b.logger.Debug("unsubscribe on stop", "error", err)
		}
		b.cancel()
		b.wg.Wait()
		b.logger.Info("mqtt state bridge stopped")
	})
}

// AttachStore publishes src's state on every change.
func (b *Bridge) AttachStore(src StateSource) (detach func()) {
	return src.Subscribe(b.offerState)
}

// AttachActivity publishes every new entry from src.
func (b *Bridge) AttachActivity(src ActivitySource) (detach func()) {
	return src.Subscribe(b.offerEntry)
}

// offerState keeps only the newest unpublished state.
func (b *Bridge) offerState(s device.State) {
	for {
		select {
		case b.states <- s:
			return
		default:
		}
		select {
		case <-b.states:
		default:
		}
	}
}

func (b *Bridge) offerEntry(e activity.Entry) {
	select {
	case b.entries <- e:
	default:
		b.count(func(s *Stats) { s.ActivityDropped++ })
		b.logger.Warn("activity publish queue full, dropping entry", "id", e.ID)
	}
}

func (b *Bridge) publishLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case s := <-b.states:
			b.publishState(s)
		case e := <-b.entries:
			b.publishEntry(e)
		}
	}
}

func (b *Bridge) publishState(s device.State) {
	payload, err := json.Marshal(newStateMessage(s, b.now()))
	if err != nil {
		b.logger.Error("encoding state", "error", err)
		return
	}
	if err := b.client.Publish(b.topics.State(), payload, b.qos, true); err != nil {
		b.count(func(s *Stats) { s.PublishFailures++ })
		b.logger.Warn("publishing state", "error", err)
		return
	}
	b.count(func(s *Stats) { s.StatesPublished++ })
}

func (b *Bridge) publishEntry(e activity.Entry) {
	payload, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("encoding activity entry", "error", err)
		return
	}
	if err := b.client.Publish(b.topics.Activity(), payload, b.qos, false); err != nil {
		b.count(func(s *Stats) { s.PublishFailures++ })
		b.logger.Warn("publishing activity entry", "id", e.ID, "error", err)
		return
	}
	b.count(func(s *Stats) { s.EntriesPublished++ })
}

// handleMessage runs on paho's goroutine. It validates the topic and
// queues the command; the device is only contacted from commandLoop.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	name, ok := b.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: topic %s", ErrUnknownCommand, topic)
	}
	if _, err := b.translate(name, payload); err != nil {
		b.count(func(s *Stats) { s.CommandsRejected++ })
		return err
	}

	select {
	case b.commands <- queuedCommand{name: name, payload: append([]byte(nil), payload...)}:
		return nil
	default:
		b.count(func(s *Stats) { s.CommandsRejected++ })
		return ErrCommandQueueFull
	}
}

func (b *Bridge) commandLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case qc := <-b.commands:
			b.execute(qc)
		}
	}
}

// commandAction is one translated intent.
type commandAction func(ctx context.Context) error

// translate parses a command and returns the action that carries it out.
func (b *Bridge) translate(name string, payload []byte) (commandAction, error) {
	switch name {
	case mqtt.CommandLamp:
		on, err := parseSwitch(payload)
		if err != nil {
			return nil, err
		}
		return b.send(device.SetLamp{On: on}), nil
	case mqtt.CommandPlug:
		on, err := parseSwitch(payload)
		if err != nil {
			return nil, err
		}
		return b.send(device.SetPlug{On: on}), nil
	case mqtt.CommandAlarm:
		on, err := parseSwitch(payload)
		if err != nil {
			return nil, err
		}
		return b.send(device.SetAlarm{On: on}), nil
	case mqtt.CommandToggle:
		return b.send(device.ToggleLamp{}), nil
	case mqtt.CommandThreshold:
		if b.thresholds == nil {
			return nil, fmt.Errorf("%w: threshold changes are not enabled", ErrUnknownCommand)
		}
		celsius, err := parseCelsius(payload)
		if err != nil {
			return nil, err
		}
		if err := settings.Validate(celsius); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return func(ctx context.Context) error {
			_, err := b.thresholds.Set(ctx, celsius)
			return err
		}, nil
	case mqtt.CommandStatus:
		return func(ctx context.Context) error {
			if !b.session.Refresh(ctx) {
				b.logger.Debug("status request skipped, device busy or not connected")
			}
			return nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

func (b *Bridge) send(cmd device.Command) commandAction {
	return func(ctx context.Context) error {
		return b.session.SendCommand(ctx, cmd)
	}
}

func (b *Bridge) execute(qc queuedCommand) {
	action, err := b.translate(qc.name, qc.payload)
	if err != nil {
		b.logger.Warn("discarding command", "command", qc.name, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if err := action(ctx); err != nil {
		b.count(func(s *Stats) { s.CommandsFailed++ })
		b.logger.Warn("mqtt command failed", "command", qc.name, "error", err)
		return
	}
	b.count(func(s *Stats) { s.CommandsHandled++ })
	b.logger.Info("mqtt command handled", "command", qc.name)
}

func (b *Bridge) count(fn func(*Stats)) {
	b.statsMu.Lock()
	fn(&b.stats)
	b.statsMu.Unlock()
}

// Stats returns a copy of the traffic counters.
func (b *Bridge) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}
