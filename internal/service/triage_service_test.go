package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/routing"
	"github.com/spec-kit/ticket-triage/pkg/util"
)

// stubClassifier returns a fixed verdict or error and counts invocations.
type stubClassifier struct {
	result domain.ClassificationResult
	err    error
	calls  atomic.Int64
}

func (s *stubClassifier) Classify(context.Context, string, string) (domain.ClassificationResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return domain.ClassificationResult{}, s.err
	}
	return s.result, nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		ConfidenceThreshold:    0.7,
		FallbackDepartment:     "GENERAL",
		ClassifyAttempts:       2,
		DispatchAttempts:       2,
		BackoffBaseMillis:      1,
		BackoffCapMillis:       2,
		DispatchTimeoutSeconds: 2,
		DispatchDeadlineSec:    5,
		DuplicateWaitSeconds:   1,
	}
}

func newTestService(t *testing.T, clf classifier.Classifier, store repository.MappingStore) (*TriageService, repository.TicketLedger) {
	t.Helper()
	cfg := testPipelineConfig()
	policy := routing.Policy{MaxAttempts: cfg.DispatchAttempts, Base: cfg.BackoffBase(), Cap: cfg.BackoffCap()}
	router := routing.NewRouter(policy, cfg.DispatchTimeout(), cfg.DispatchDeadline(), zap.NewNop(), nil)
	ledger := repository.NewMemoryLedger()
	svc := NewTriageService(TriageDependencies{
		Ledger:            ledger,
		Mappings:          store,
		Classifier:        clf,
		Router:            router,
		Dispatcher:        nil,
		Logger:            zap.NewNop(),
		Pipeline:          cfg,
		ClassifierTimeout: time.Second,
	})
	return svc, ledger
}

func addMapping(t *testing.T, store repository.MappingStore, dept domain.Department, endpoint string) {
	t.Helper()
	err := store.Create(context.Background(), &domain.DepartmentMapping{
		Department:        dept,
		TeamName:          "test_team",
		Endpoint:          endpoint,
		Method:            http.MethodPost,
		PriorityThreshold: domain.TicketPriorityLow,
		IsActive:          true,
	})
	require.NoError(t, err)
}

func vpnTicket() SubmitInput {
	return SubmitInput{
		Title:          "VPN connection issues",
		Description:    "Cannot connect to company VPN since this morning",
		SubmitterEmail: "user@example.com",
		Priority:       domain.TicketPriorityHigh,
	}
}

func TestSubmitRoutesConfidentTicket(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "EXT-100"}`))
	}))
	defer target.Close()

	store := repository.NewMemoryMappingStore()
	addMapping(t, store, domain.DepartmentIT, target.URL)

	clf := &stubClassifier{result: domain.ClassificationResult{
		Label:      domain.DepartmentIT,
		AssignedTo: "network_team",
		Confidence: 0.92,
	}}
	svc, _ := newTestService(t, clf, store)

	ticket, err := svc.Submit(context.Background(), vpnTicket())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusRouted, ticket.Status)
	require.NotNil(t, ticket.Department)
	assert.Equal(t, domain.DepartmentIT, *ticket.Department)
	require.NotNil(t, ticket.ConfidenceScore)
	assert.Equal(t, 0.92, *ticket.ConfidenceScore)
	require.NotNil(t, ticket.ExternalID)
	assert.Equal(t, "EXT-100", *ticket.ExternalID)
	assert.NotNil(t, ticket.RoutedToSystem)
	assert.Regexp(t, `^TKT-[0-9A-F]{8}$`, ticket.ID)
}

func TestSubmitLowConfidenceFallsBack(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	store := repository.NewMemoryMappingStore()
	addMapping(t, store, domain.DepartmentGeneral, target.URL)

	clf := &stubClassifier{result: domain.ClassificationResult{
		Label:      domain.DepartmentHR,
		Confidence: 0.4,
	}}
	svc, _ := newTestService(t, clf, store)

	ticket, err := svc.Submit(context.Background(), vpnTicket())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusRouted, ticket.Status)
	require.NotNil(t, ticket.Department)
	assert.Equal(t, domain.DepartmentGeneral, *ticket.Department)
	require.NotNil(t, ticket.ConfidenceScore)
	assert.Equal(t, 0.4, *ticket.ConfidenceScore, "raw confidence preserved through fallback")
}

func TestSubmitClassifierFailureDegrades(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	store := repository.NewMemoryMappingStore()
	addMapping(t, store, domain.DepartmentGeneral, target.URL)

	clf := &stubClassifier{err: classifier.ErrUnavailable}
	svc, _ := newTestService(t, clf, store)

	ticket, err := svc.Submit(context.Background(), vpnTicket())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusRouted, ticket.Status, "classifier outage never fails a ticket with a fallback route")
	require.NotNil(t, ticket.Department)
	assert.Equal(t, domain.DepartmentGeneral, *ticket.Department)
	require.NotNil(t, ticket.ConfidenceScore)
	assert.Equal(t, 0.0, *ticket.ConfidenceScore)
	assert.Equal(t, int64(2), clf.calls.Load(), "classifier retried within budget")
}

func TestSubmitNoRouteFails(t *testing.T) {
	store := repository.NewMemoryMappingStore()

	clf := &stubClassifier{result: domain.ClassificationResult{
		Label:      domain.DepartmentLegal,
		Confidence: 0.95,
	}}
	svc, _ := newTestService(t, clf, store)

	ticket, err := svc.Submit(context.Background(), vpnTicket())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusFailed, ticket.Status)
	require.NotNil(t, ticket.ErrorMessage)
	assert.Contains(t, *ticket.ErrorMessage, "no active mapping")
	assert.Nil(t, ticket.ExternalID)
}

func TestSubmitDuplicateObservesExistingRun(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "EXT-7"}`))
	}))
	defer target.Close()

	store := repository.NewMemoryMappingStore()
	addMapping(t, store, domain.DepartmentIT, target.URL)

	clf := &stubClassifier{result: domain.ClassificationResult{
		Label:      domain.DepartmentIT,
		Confidence: 0.9,
	}}
	svc, _ := newTestService(t, clf, store)

	input := vpnTicket()
	input.ID = "TKT-DUP00001"

	first, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusRouted, first.Status)

	second, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.TicketStatusRouted, second.Status)
	assert.Equal(t, int64(1), clf.calls.Load(), "duplicate submission never reprocesses")
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newTestService(t, &stubClassifier{}, repository.NewMemoryMappingStore())

	cases := []struct {
		name  string
		input SubmitInput
	}{
		{"missing title", SubmitInput{Description: "d", SubmitterEmail: "a@b.c"}},
		{"missing description", SubmitInput{Title: "t", SubmitterEmail: "a@b.c"}},
		{"title too long", SubmitInput{Title: strings.Repeat("t", 201), Description: "d", SubmitterEmail: "a@b.c"}},
		{"description too long", SubmitInput{Title: "t", Description: strings.Repeat("d", 5001), SubmitterEmail: "a@b.c"}},
		{"bad email", SubmitInput{Title: "t", Description: "d", SubmitterEmail: "nope"}},
		{"email with spaces", SubmitInput{Title: "t", Description: "d", SubmitterEmail: "a b@example.com"}},
		{"bad priority", SubmitInput{Title: "t", Description: "d", SubmitterEmail: "a@b.c", Priority: "urgent"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.input)
			require.Error(t, err)
			assert.True(t, util.HasCode(err, util.CodeValidationFailed))
		})
	}
}

func TestGetUnknownTicket(t *testing.T) {
	svc, _ := newTestService(t, &stubClassifier{}, repository.NewMemoryMappingStore())

	_, err := svc.Get(context.Background(), "TKT-MISSING1")
	require.Error(t, err)
	assert.True(t, util.HasCode(err, util.CodeNotFound))
}

func TestStateNeverSkipsClassified(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	store := repository.NewMemoryMappingStore()
	addMapping(t, store, domain.DepartmentGeneral, target.URL)

	clf := &stubClassifier{err: classifier.ErrUnavailable}
	svc, ledger := newTestService(t, clf, store)

	input := vpnTicket()
	input.ID = "TKT-ORDER001"
	_, err := svc.Submit(context.Background(), input)
	require.NoError(t, err)

	// Fallback classification still passed through CLASSIFIED: the stored
	// ticket carries the department and score the transition wrote.
	stored, err := ledger.Get(context.Background(), input.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Department)
	require.NotNil(t, stored.ConfidenceScore)
	assert.Equal(t, domain.TicketStatusRouted, stored.Status)
}
