package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "redditanalyzer/pkg/errors"
	"redditanalyzer/pkg/logger"
)

// ErrExhausted is matched by the error returned when every attempt failed transiently.
var ErrExhausted = errors.New("retry attempts exhausted")

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// ExhaustedError reports the attempt count and the last failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes both ErrExhausted and the last failure to errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// PanicError wraps a value recovered from an operation.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Value)
}

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (0 means unlimited)
	MaxAttempts int
	// Backoff strategy to use
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// AbortIf marks permanent denials; matching errors stop after one attempt
	AbortIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep waits between attempts; defaults to Wait
	Sleep func(ctx context.Context, d time.Duration) error
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		AbortIf:     errs.IsForbidden,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// RemoteConfig returns the policy used against the remote content source:
// attempts attempts, waiting factor^attempt seconds after each transient failure.
func RemoteConfig(attempts int, factor float64, log logger.Logger) *Config {
	if attempts <= 0 {
		attempts = 5
	}
	if factor <= 0 {
		factor = 2
	}
	return &Config{
		MaxAttempts: attempts,
		Backoff:     &PowerBackoff{Factor: factor, Unit: time.Second},
		RetryIf:     DefaultRetryIf,
		AbortIf:     errs.IsForbidden,
		Context:     context.Background(),
		Logger:      log,
	}
}

// WithContext returns a copy of the config bound to ctx
func (c *Config) WithContext(ctx context.Context) *Config {
	cp := *c
	cp.Context = ctx
	return &cp
}

// DefaultRetryIf is the default retry predicate
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Untyped errors are treated as transient
	return true
}

func (c *Config) withDefaults() *Config {
	cp := *c
	if cp.Backoff == nil {
		cp.Backoff = DefaultExponentialBackoff()
	}
	if cp.RetryIf == nil {
		cp.RetryIf = DefaultRetryIf
	}
	if cp.AbortIf == nil {
		cp.AbortIf = func(error) bool { return false }
	}
	if cp.Sleep == nil {
		cp.Sleep = Wait
	}
	if cp.Context == nil {
		cp.Context = context.Background()
	}
	if cp.Logger == nil {
		cp.Logger = logger.NewNopLogger()
	}
	return &cp
}

// Do executes an operation with retry logic.
// It never panics: a panicking operation is reported as a *PanicError.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()

	for attempt := 1; ; attempt++ {
		err := call(op)
		if err == nil {
			if attempt > 1 {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if cfg.AbortIf(err) {
			cfg.Logger.WarnWithFields("access forbidden, skipping", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}

		if !cfg.RetryIf(err) {
			cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   attempt,
				"last_error": err.Error(),
			})
			return &ExhaustedError{Attempts: attempt, Last: err}
		}

		delay := cfg.Backoff.NextDelay(attempt)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": cfg.MaxAttempts,
		})

		if err := cfg.Sleep(cfg.Context, delay); err != nil {
			cfg.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
				"attempt": attempt,
				"reason":  err.Error(),
			})
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic.
// The zero value is returned alongside any error.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

func call(op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return op()
}
