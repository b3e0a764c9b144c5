package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notifyconf/internal/domain"
	"notifyconf/internal/settings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "notifyconf/internal/notify"

// Failure records one service that could not be notified.
type Failure struct {
	URL string
	Err error
}

// Result summarizes one dispatch.
type Result struct {
	Sent   int
	Failed []Failure
}

// OK reports whether every service accepted the notification.
func (r Result) OK() bool {
	return len(r.Failed) == 0
}

// Dispatcher delivers notifications with configured retries/backoff.
// Params: retry policy, logger, and tracer.
// Returns: send helper for the app layer.
type Dispatcher struct {
	retry  settings.RetryConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// NewDispatcher builds a dispatcher using the global otel tracer provider.
// Params: retry policy and optional logger.
// Returns: configured dispatcher.
func NewDispatcher(retry settings.RetryConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		retry:  retry,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Notify sends notification to each service in order.
// Params: context, selected services, and payload.
// Returns: per-dispatch result; a cancelled context fails the remaining services.
func (d *Dispatcher) Notify(ctx context.Context, services []Service, notification domain.Notification) Result {
	if notification.Type == "" {
		notification.Type = domain.NotifyTypeInfo
	}
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now().UTC()
	}

	var result Result
	for _, service := range services {
		if err := d.sendWithRetry(ctx, service, notification); err != nil {
			d.logger.Warn("notify send failed", "service", service.Name(), "url", service.URL(), "error", err.Error())
			result.Failed = append(result.Failed, Failure{URL: service.URL(), Err: err})
			continue
		}
		result.Sent++
	}
	return result
}

// attempt runs one send inside a span.
func (d *Dispatcher) attempt(ctx context.Context, service Service, notification domain.Notification, attempt int) error {
	ctx, span := d.tracer.Start(ctx, "notify.send", trace.WithAttributes(
		attribute.String("service", service.Name()),
		attribute.Int("attempt", attempt),
	))
	defer span.End()

	err := service.Send(ctx, notification)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("permanent", IsPermanent(err)))
	}
	return err
}

// sendWithRetry sends one notification with the dispatcher retry policy.
// Params: service and payload.
// Returns: final error after retries; permanent errors stop immediately.
func (d *Dispatcher) sendWithRetry(ctx context.Context, service Service, notification domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	retry := d.retry
	if !retry.Enabled {
		return d.attempt(ctx, service, notification, 1)
	}

	attempt := 0
	backoff := time.Duration(retry.InitialMS) * time.Millisecond
	maxBackoff := time.Duration(retry.MaxMS) * time.Millisecond
	var timer *time.Timer
	stopTimer := func() {
		if timer != nil && !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}

	for {
		attempt++
		err := d.attempt(ctx, service, notification, attempt)
		if err == nil {
			stopTimer()
			if retry.LogEachAttempt && attempt > 1 {
				d.logger.Info("notify send recovered after retries", "service", service.Name(), "attempt", attempt)
			}
			return nil
		}
		if retry.LogEachAttempt {
			d.logger.Warn("notify send attempt failed", "service", service.Name(), "attempt", attempt, "error", err.Error())
		}
		if IsPermanent(err) {
			stopTimer()
			return err
		}
		if retry.MaxAttempts > 0 && attempt >= retry.MaxAttempts {
			stopTimer()
			return fmt.Errorf("service %s failed after %d attempts: %w", service.Name(), attempt, err)
		}

		if timer == nil {
			timer = time.NewTimer(backoff)
		} else {
			stopTimer()
			timer.Reset(backoff)
		}
		select {
		case <-ctx.Done():
			stopTimer()
			return ctx.Err()
		case <-timer.C:
		}

		if strings.EqualFold(retry.Backoff, settings.BackoffExponential) {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}
