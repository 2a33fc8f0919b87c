package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/pkg/util"
)

// Attempt is the transient record of one dispatch try, reported to the
// observer so retries and mapping fallbacks stay independently observable.
type Attempt struct {
	TicketID string
	Target   string
	System   string
	Number   int
	Latency  time.Duration
	Err      error
}

// AttemptObserver receives every dispatch attempt. May be nil.
type AttemptObserver func(Attempt)

// RoutingOutcome aggregates per-target results into one pipeline-level result.
type RoutingOutcome struct {
	Success    bool
	System     string
	TeamName   string
	ExternalID *string
	Err        error
}

// Router dispatches classified tickets to downstream ticketing systems,
// retrying transient failures per mapping and falling through mappings in
// priority order. The first mapping to succeed wins; partial failure of one
// target while another succeeds is not an overall failure.
type Router struct {
	client         *http.Client
	policy         Policy
	attemptTimeout time.Duration
	deadline       time.Duration
	logger         *zap.Logger
	observe        AttemptObserver
}

// NewRouter builds a router. observe may be nil.
func NewRouter(policy Policy, attemptTimeout, deadline time.Duration, logger *zap.Logger, observe AttemptObserver) *Router {
	return &Router{
		client:         &http.Client{Timeout: attemptTimeout},
		policy:         policy,
		attemptTimeout: attemptTimeout,
		deadline:       deadline,
		logger:         logger,
		observe:        observe,
	}
}

// statusError is a non-2xx response from a routing target.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("target responded %d: %s", e.code, e.body)
}

// isTransient classifies dispatch failures: timeouts, transport errors, 429
// and 5xx are retryable; other HTTP failures are permanent for that target.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// Dispatch tries each mapping in priority order within the pipeline-level
// deadline. Cancellation of ctx stops scheduling new attempts; the attempt
// already in flight runs on a detached context so the ledger never sticks
// in ROUTING.
func (r *Router) Dispatch(ctx context.Context, ticket domain.Ticket, mappings []domain.DepartmentMapping) RoutingOutcome {
	department := domain.DepartmentGeneral
	if ticket.Department != nil {
		department = *ticket.Department
	}
	if len(mappings) == 0 {
		return RoutingOutcome{Err: util.NewNoRouteAvailable(string(department))}
	}

	schedCtx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	var lastErr error
	for _, mapping := range mappings {
		if schedCtx.Err() != nil {
			break
		}

		system := SystemFromEndpoint(mapping.Endpoint)
		var externalID *string
		attemptNo := 0

		outcome := r.policy.Do(schedCtx, func(context.Context) error {
			attemptNo++
			// Detached per-attempt context: an in-flight call completes even
			// when the inbound request goes away.
			attemptCtx, cancelAttempt := context.WithTimeout(context.WithoutCancel(ctx), r.attemptTimeout)
			defer cancelAttempt()

			start := time.Now()
			id, err := r.attempt(attemptCtx, ticket, mapping, system)
			latency := time.Since(start)
			if r.observe != nil {
				r.observe(Attempt{TicketID: ticket.ID, Target: mapping.Endpoint, System: system, Number: attemptNo, Latency: latency, Err: err})
			}
			if err != nil {
				r.logger.Warn("dispatch attempt failed",
					zap.String("ticket_id", ticket.ID),
					zap.String("endpoint", mapping.Endpoint),
					zap.Int("attempt", attemptNo),
					zap.Error(err))
				return err
			}
			externalID = id
			return nil
		}, isTransient)

		if outcome.Err == nil {
			r.logger.Info("ticket dispatched",
				zap.String("ticket_id", ticket.ID),
				zap.String("system", system),
				zap.Int("attempts", outcome.Attempts))
			return RoutingOutcome{
				Success:    true,
				System:     system,
				TeamName:   mapping.TeamName,
				ExternalID: externalID,
			}
		}
		lastErr = outcome.Err
	}

	if errors.Is(schedCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return RoutingOutcome{Err: util.NewDeadlineExceeded(
			fmt.Sprintf("dispatch deadline exceeded after %s", r.deadline))}
	}
	if lastErr == nil {
		lastErr = schedCtx.Err()
	}
	if isTransient(lastErr) {
		return RoutingOutcome{Err: util.NewDispatchTransient(lastErr)}
	}
	return RoutingOutcome{Err: util.NewDispatchPermanent(lastErr)}
}

func (r *Router) attempt(ctx context.Context, ticket domain.Ticket, mapping domain.DepartmentMapping, system string) (*string, error) {
	payload, err := json.Marshal(BuildPayload(ticket, mapping, system))
	if err != nil {
		return nil, err
	}

	method := mapping.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, mapping.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ticket-triage-agent/1.0")
	for key, val := range mapping.Headers {
		req.Header.Set(key, val)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode, body: truncate(string(body), 200)}
	}
	return ExtractExternalID(body, system), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
