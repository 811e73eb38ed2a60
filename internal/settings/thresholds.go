package settings

import (
	"context"
	"fmt"
	"math"

	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/config"
)

// Store is the part of the device store Thresholds needs.
type Store interface {
	Snapshot() device.State
	Merge(p device.Partial) device.State
}

// Sender delivers a command to the device. *session.Session satisfies it.
type Sender interface {
	SendCommand(ctx context.Context, cmd device.Command) error
}

// Logger defines the logging interface used by Thresholds.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Options configures Thresholds.
type Options struct {
	Repository Repository
	Store      Store

	// Sender is used when PushToDevice is set.
	Sender       Sender
	PushToDevice bool

	Logger Logger
}

// Result describes an applied threshold change.
type Result struct {
	Celsius float64 `json:"celsius"`
	Pushed  bool    `json:"pushed"`
}

// Thresholds applies alarm threshold changes.
type Thresholds struct {
	repo   Repository
	store  Store
	sender Sender
	push   bool
	logger Logger
}

// NewThresholds creates Thresholds from opts.
func NewThresholds(opts Options) *Thresholds {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Thresholds{
		repo:   opts.Repository,
		store:  opts.Store,
		sender: opts.Sender,
		push:   opts.PushToDevice && opts.Sender != nil,
		logger: logger,
	}
}

// Validate reports whether celsius is an acceptable threshold.
func Validate(celsius float64) error {
	if math.IsNaN(celsius) || celsius < config.MinAlarmThreshold || celsius > config.MaxAlarmThreshold {
		return fmt.Errorf("%w: %v (allowed %.0f to %.0f °C)",
			ErrOutOfRange, celsius, config.MinAlarmThreshold, config.MaxAlarmThreshold)
	}
	return nil
}

// Restore merges the persisted threshold into the store, or fallback when
// nothing is stored yet, and returns the value used.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - fallback: Threshold to use when none is persisted (config default)
//
// Returns:
//   - float64: The threshold now in the store
//   - error: If the repository cannot be read
func (t *Thresholds) Restore(ctx context.Context, fallback float64) (float64, error) {
	v := fallback
	if t.repo != nil {
		stored, ok, err := t.repo.GetAlarmThreshold(ctx)
		if err != nil {
			return 0, fmt.Errorf("restoring alarm threshold: %w", err)
		}
		if ok {
			if err := Validate(stored); err != nil {
				t.logger.Warn("ignoring stored alarm threshold", "value", stored, "error", err)
			} else {
				v = stored
			}
		}
	}

	t.store.Merge(device.Partial{AlarmThreshold: &v})
	t.logger.Info("alarm threshold restored", "celsius", v)
	return v, nil
}

// Set validates celsius, merges it into the store, persists it and, when
// enabled and connected, pushes it to the device.
//
// Returns:
//   - Result: What was applied
//   - error: ErrOutOfRange before anything changes; a persistence error;
//     or ErrPushFailed after the local change has been applied
func (t *Thresholds) Set(ctx context.Context, celsius float64) (Result, error) {
	if err := Validate(celsius); err != nil {
		return Result{}, err
	}

	t.store.Merge(device.Partial{AlarmThreshold: &celsius})
	res := Result{Celsius: celsius}

	if t.repo != nil {
		if err := t.repo.SetAlarmThreshold(ctx, celsius); err != nil {
			return res, fmt.Errorf("persisting alarm threshold: %w", err)
		}
	}

	if !t.push || !t.store.Snapshot().Connected {
		return res, nil
	}

	if err := t.sender.SendCommand(ctx, device.SetThreshold{Celsius: celsius}); err != nil {
		return res, fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	res.Pushed = true
	return res, nil
}
