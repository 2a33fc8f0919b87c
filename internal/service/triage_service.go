package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/routing"
	"github.com/spec-kit/ticket-triage/pkg/util"
)

const duplicatePollInterval = 200 * time.Millisecond

// TriageService owns the ticket state machine. It is the only writer of
// ticket status: classify, resolve the department, route, and record the
// terminal outcome, with every step persisted through the ledger.
type TriageService struct {
	ledger            repository.TicketLedger
	mappings          repository.MappingStore
	classifier        classifier.Classifier
	router            *routing.Router
	dispatcher        events.Dispatcher
	logger            *zap.Logger
	policy            ConfidencePolicy
	pipeline          config.PipelineConfig
	classifierTimeout time.Duration
}

// TriageDependencies bundles collaborators for the triage service.
type TriageDependencies struct {
	Ledger            repository.TicketLedger
	Mappings          repository.MappingStore
	Classifier        classifier.Classifier
	Router            *routing.Router
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	Pipeline          config.PipelineConfig
	ClassifierTimeout time.Duration
}

// NewTriageService creates the service.
func NewTriageService(deps TriageDependencies) *TriageService {
	fallback := domain.Department(strings.ToUpper(deps.Pipeline.FallbackDepartment))
	if !fallback.Valid() {
		fallback = domain.DepartmentGeneral
	}
	return &TriageService{
		ledger:            deps.Ledger,
		mappings:          deps.Mappings,
		classifier:        deps.Classifier,
		router:            deps.Router,
		dispatcher:        deps.Dispatcher,
		logger:            deps.Logger,
		policy:            ConfidencePolicy{Threshold: deps.Pipeline.ConfidenceThreshold, Fallback: fallback},
		pipeline:          deps.Pipeline,
		classifierTimeout: deps.ClassifierTimeout,
	}
}

// SubmitInput describes an inbound ticket submission.
type SubmitInput struct {
	ID             string
	Title          string
	Description    string
	SubmitterEmail string
	Priority       domain.TicketPriority
	Metadata       map[string]string
}

// Submit runs one ticket through the full pipeline and returns its terminal
// state. Resubmitting an identifier already in the ledger never starts a
// second run: the call observes the existing run instead, waiting a bounded
// time for it to finish.
func (s *TriageService) Submit(ctx context.Context, input SubmitInput) (domain.Ticket, error) {
	ticket, err := s.newTicket(input)
	if err != nil {
		return domain.Ticket{}, err
	}

	stored, created, err := s.ledger.CreateIfAbsent(ctx, ticket)
	if err != nil {
		return domain.Ticket{}, util.NewInternalError(err)
	}
	if !created {
		s.logger.Info("duplicate submission observed",
			zap.String("ticket_id", stored.ID),
			zap.String("status", string(stored.Status)))
		return s.awaitTerminal(ctx, stored)
	}

	s.publish(ctx, events.EventTicketReceived, stored.ID, events.TicketReceivedPayload{
		Title:    stored.Title,
		Priority: stored.Priority,
	})
	return s.process(ctx, stored)
}

// Get returns the current ledger state of a ticket.
func (s *TriageService) Get(ctx context.Context, id string) (domain.Ticket, error) {
	ticket, err := s.ledger.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return domain.Ticket{}, util.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return domain.Ticket{}, util.NewInternalError(err)
	}
	return ticket, nil
}

func (s *TriageService) process(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	verdict, degraded := s.classify(ctx, ticket)

	department := s.policy.Fallback
	fallbackApplied := true
	if !degraded {
		var floor *float64
		if verdict.Label.Valid() {
			if candidates, err := s.mappings.Lookup(ctx, verdict.Label, ticket.Priority); err == nil {
				floor = strictestFloor(candidates)
			}
		}
		department, fallbackApplied = s.policy.Resolve(verdict, floor)
	}

	now := time.Now().UTC()
	current, err := s.ledger.Transition(ctx, ticket.WithClassification(department, verdict.AssignedTo, verdict.Confidence, now), domain.TicketStatusReceived)
	if err != nil {
		return s.recoverTransition(ctx, ticket.ID, err)
	}
	s.publish(ctx, events.EventTicketClassified, current.ID, events.TicketClassifiedPayload{
		Department: department,
		AssignedTo: verdict.AssignedTo,
		Confidence: verdict.Confidence,
		Fallback:   fallbackApplied,
	})

	mappings, err := s.mappings.Lookup(ctx, department, ticket.Priority)
	if err != nil {
		s.logger.Error("mapping lookup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		mappings = nil
	}

	current, err = s.ledger.Transition(ctx, current.WithRouting(time.Now().UTC()), domain.TicketStatusClassified)
	if err != nil {
		return s.recoverTransition(ctx, ticket.ID, err)
	}

	outcome := s.router.Dispatch(ctx, current, mappings)

	// Terminal writes land even when the submitter has gone away; a ticket
	// must never stay parked in ROUTING.
	termCtx := context.WithoutCancel(ctx)
	now = time.Now().UTC()
	if outcome.Success {
		routed := current.WithRouted(outcome.System, outcome.ExternalID, now)
		if routed.AssignedTo == nil && outcome.TeamName != "" {
			team := outcome.TeamName
			routed.AssignedTo = &team
		}
		current, err = s.ledger.Transition(termCtx, routed, domain.TicketStatusRouting)
		if err != nil {
			return s.recoverTransition(ctx, ticket.ID, err)
		}
		s.publish(termCtx, events.EventTicketRouted, current.ID, events.TicketRoutedPayload{
			System:     outcome.System,
			TeamName:   outcome.TeamName,
			ExternalID: outcome.ExternalID,
		})
		return current, nil
	}

	cause := util.ToDomainError(outcome.Err)
	current, err = s.ledger.Transition(termCtx, current.WithFailed(cause.Error(), now), domain.TicketStatusRouting)
	if err != nil {
		return s.recoverTransition(ctx, ticket.ID, err)
	}
	s.logger.Warn("ticket failed",
		zap.String("ticket_id", current.ID),
		zap.String("code", cause.Code),
		zap.Error(outcome.Err))
	s.publish(termCtx, events.EventTicketFailed, current.ID, events.TicketFailedPayload{
		Code:    cause.Code,
		Message: cause.Error(),
	})
	return current, nil
}

// classify runs the classifier within the retry budget. Exhausting the
// budget degrades to the fallback department with confidence 0.0; it is
// never a ticket failure.
func (s *TriageService) classify(ctx context.Context, ticket domain.Ticket) (domain.ClassificationResult, bool) {
	policy := routing.Policy{
		MaxAttempts: s.pipeline.ClassifyAttempts,
		Base:        s.pipeline.BackoffBase(),
		Cap:         s.pipeline.BackoffCap(),
	}

	var result domain.ClassificationResult
	outcome := policy.Do(ctx, func(context.Context) error {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.classifierTimeout)
		defer cancel()
		verdict, err := s.classifier.Classify(attemptCtx, ticket.Title, ticket.Description)
		if err != nil {
			return err
		}
		result = verdict
		return nil
	}, func(error) bool { return true })

	if outcome.Err != nil {
		s.logger.Warn("classification degraded to fallback",
			zap.String("ticket_id", ticket.ID),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.Err))
		return domain.ClassificationResult{
			Label:      s.policy.Fallback,
			Confidence: 0.0,
			Reasoning:  "classifier unavailable",
		}, true
	}
	return result, false
}

// awaitTerminal blocks a duplicate submission until the original run
// reaches a terminal state or the wait budget expires, then returns
// whatever state the ledger holds.
func (s *TriageService) awaitTerminal(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	if ticket.Status.IsTerminal() || s.pipeline.DuplicateWait() <= 0 {
		return ticket, nil
	}

	deadline := time.NewTimer(s.pipeline.DuplicateWait())
	defer deadline.Stop()
	poll := time.NewTicker(duplicatePollInterval)
	defer poll.Stop()

	current := ticket
	for {
		select {
		case <-ctx.Done():
			return current, nil
		case <-deadline.C:
			return current, nil
		case <-poll.C:
			latest, err := s.ledger.Get(ctx, ticket.ID)
			if err != nil {
				return current, nil
			}
			current = latest
			if current.Status.IsTerminal() {
				return current, nil
			}
		}
	}
}

// recoverTransition handles a lost compare-and-swap: some other writer moved
// the ticket. The ledger state is authoritative, so return it.
func (s *TriageService) recoverTransition(ctx context.Context, id string, cause error) (domain.Ticket, error) {
	if errors.Is(cause, repository.ErrStaleTicket) {
		latest, err := s.ledger.Get(context.WithoutCancel(ctx), id)
		if err == nil {
			return latest, nil
		}
	}
	return domain.Ticket{}, util.NewInternalError(cause)
}

// Field bounds mirror the ledger schema columns; oversized input is a
// validation failure, never a storage error.
const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

func (s *TriageService) newTicket(input SubmitInput) (domain.Ticket, error) {
	details := map[string]any{}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		details["title"] = "required"
	} else if len(title) > maxTitleLength {
		details["title"] = fmt.Sprintf("at most %d characters", maxTitleLength)
	}
	if description == "" {
		details["description"] = "required"
	} else if len(description) > maxDescriptionLength {
		details["description"] = fmt.Sprintf("at most %d characters", maxDescriptionLength)
	}
	email := strings.TrimSpace(input.SubmitterEmail)
	if _, err := mail.ParseAddress(email); err != nil {
		details["email"] = "valid email required"
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		details["priority"] = "must be one of low, medium, high, critical"
	}
	if len(details) > 0 {
		return domain.Ticket{}, util.NewValidationError("invalid ticket submission", details)
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = newTicketID()
	}
	metadata := make(map[string]string, len(input.Metadata))
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	now := time.Now().UTC()
	return domain.Ticket{
		ID:             id,
		Title:          title,
		Description:    description,
		SubmitterEmail: email,
		Priority:       priority,
		Metadata:       metadata,
		Status:         domain.TicketStatusReceived,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func newTicketID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TKT-" + strings.ToUpper(raw[:8])
}

func (s *TriageService) publish(ctx context.Context, eventType events.EventType, ticketID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{Type: eventType, TicketID: ticketID, Payload: payload})
}
