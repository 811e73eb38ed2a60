package automation

import (
	"context"
	"sync"

	"github.com/nerrad567/homepanel-core/internal/advisor"
	"github.com/nerrad567/homepanel-core/internal/device"
)

// Sender delivers a command to the device. *session.Session satisfies it.
type Sender interface {
	SendCommand(ctx context.Context, cmd device.Command) error
}

// StateSource is the part of the device store the AlarmSync needs.
type StateSource interface {
	Subscribe(fn func(device.State)) (unsubscribe func())
}

// Logger defines the logging interface used by the automation package.
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

// AlarmSync issues SetAlarm corrections when the buzzer disagrees with the
// software alarm condition.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type AlarmSync struct {
	sender Sender
	logger Logger

	corrections chan bool

	mu sync.Mutex
	// outstanding is the target of the correction in flight or queued.
	outstanding *bool
	issued      int
}

// NewAlarmSync creates an AlarmSync that sends through sender.
//
// Parameters:
//   - sender: Path to the device, normally the session
//   - logger: Logger instance (may be nil)
//
// Returns:
//   - *AlarmSync: Ready to Attach and Run
func NewAlarmSync(sender Sender, logger Logger) *AlarmSync {
	if logger == nil {
		logger = noopLogger{}
	}
	return &AlarmSync{
		sender:      sender,
		logger:      logger,
		corrections: make(chan bool, 1),
	}
}

// Attach evaluates src's current state and every later change.
func (a *AlarmSync) Attach(src StateSource) (detach func()) {
	return src.Subscribe(a.evaluate)
}

// evaluate runs inside a store notification and must not block.
func (a *AlarmSync) evaluate(s device.State) {
	active := advisor.IsAlarmActive(s)

	a.mu.Lock()
	defer a.mu.Unlock()

	if active == s.BuzzerOn {
		a.outstanding = nil
		return
	}
	if !s.Connected {
		return
	}
	if a.outstanding != nil && *a.outstanding == active {
		return
	}

	target := active
	a.outstanding = &target
	a.issued++
	a.enqueue(target)

	a.logger.Info("alarm divergence, correcting buzzer",
		"temperature", s.Temperature,
		"threshold", s.AlarmThreshold,
		"buzzer_on", s.BuzzerOn,
		"target", target,
	)
}

// enqueue replaces any queued but unsent correction with target.
func (a *AlarmSync) enqueue(target bool) {
	select {
	case a.corrections <- target:
		return
	default:
	}
	select {
	case <-a.corrections:
	default:
	}
	select {
	case a.corrections <- target:
	default:
	}
}

// Run sends queued corrections until ctx is cancelled.
//
// Returns:
//   - error: ErrNoSender if there is no sender, otherwise ctx.Err()
func (a *AlarmSync) Run(ctx context.Context) error {
	if a.sender == nil {
		return ErrNoSender
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target := <-a.corrections:
			a.send(ctx, target)
		}
	}
}

func (a *AlarmSync) send(ctx context.Context, target bool) {
	err := a.sender.SendCommand(ctx, device.SetAlarm{On: target})
	if err == nil {
		return
	}

	a.logger.Warn("alarm correction failed", "target", target, "error", err)

	a.mu.Lock()
	if a.outstanding != nil && *a.outstanding == target {
		a.outstanding = nil
	}
	a.mu.Unlock()
}

// Outstanding returns the target of the correction awaiting convergence.
func (a *AlarmSync) Outstanding() (target bool, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.outstanding == nil {
		return false, false
	}
	return *a.outstanding, true
}

// Issued returns how many corrections have been issued since creation.
func (a *AlarmSync) Issued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.issued
}
