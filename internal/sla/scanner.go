package sla

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/observability"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

const defaultBatchSize = 200

// BreachHandler reacts to a milestone that was just flagged as breached.
type BreachHandler interface {
	HandleBreach(ctx context.Context, ticket *domain.Ticket, policy *domain.SlaPolicy, breach Breach) error
}

// ScannerDependencies wires the scanner.
type ScannerDependencies struct {
	Statuses  repository.SlaStatusRepository
	Tickets   repository.TicketRepository
	Policies  repository.SlaPolicyRepository
	Handler   BreachHandler
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	BatchSize int
}

// ScanReport summarizes one scan.
type ScanReport struct {
	Examined int `json:"examined"`
	Breached int `json:"breached"`
	Failed   int `json:"failed"`
}

// Scanner flags overdue milestones exactly once and hands them to the
// breach handler.
type Scanner struct {
	deps *ScannerDependencies
}

// NewScanner constructs a Scanner.
func NewScanner(deps *ScannerDependencies) *Scanner {
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Scanner{deps: deps}
}

// Scan walks every outstanding overdue milestone in keyset-ordered pages.
// A milestone is escalated only by the caller whose MarkBreached wins, so
// concurrent scans never double-dispatch. Per-ticket failures are logged and
// counted; only context cancellation aborts the scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) (ScanReport, error) {
	ctx, span := observability.Tracer().Start(ctx, "sla.Scan")
	defer span.End()

	started := time.Now()
	var report ScanReport
	for _, kind := range domain.MilestoneKinds() {
		if err := s.scanKind(ctx, kind, now, &report); err != nil {
			s.deps.Metrics.ObserveScan("failed", time.Since(started))
			span.RecordError(err)
			return report, err
		}
	}

	span.SetAttributes(
		attribute.Int("sla.examined", report.Examined),
		attribute.Int("sla.breached", report.Breached),
		attribute.Int("sla.failed", report.Failed),
	)
	s.deps.Metrics.ObserveScan("completed", time.Since(started))
	if report.Examined > 0 {
		s.deps.Logger.Info("sla breach scan finished",
			zap.Int("examined", report.Examined),
			zap.Int("breached", report.Breached),
			zap.Int("failed", report.Failed))
	}
	return report, nil
}

func (s *Scanner) scanKind(ctx context.Context, kind domain.MilestoneKind, now time.Time, report *ScanReport) error {
	var cursor repository.BreachCursor
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.deps.Statuses.ListBreachCandidates(ctx, kind, now, cursor, s.deps.BatchSize)
		if err != nil {
			return err
		}
		for _, candidate := range page {
			report.Examined++
			s.process(ctx, kind, candidate, now, report)
		}
		if len(page) < s.deps.BatchSize {
			return nil
		}
		last := page[len(page)-1]
		cursor = repository.BreachCursor{Deadline: last.Deadline, StatusID: last.StatusID}
	}
}

func (s *Scanner) process(ctx context.Context, kind domain.MilestoneKind, candidate domain.BreachCandidate, now time.Time, report *ScanReport) {
	logger := s.deps.Logger.With(
		zap.String("ticket_id", candidate.TicketID),
		zap.String("milestone", string(kind)))

	won, err := s.deps.Statuses.MarkBreached(ctx, candidate.StatusID, kind, now)
	if err != nil {
		report.Failed++
		logger.Error("mark breached failed", zap.Error(err))
		return
	}
	if !won {
		return
	}
	report.Breached++
	s.deps.Metrics.BreachDetected(string(kind))
	logger.Warn("sla milestone breached", zap.Time("deadline", candidate.Deadline))

	if s.deps.Handler == nil {
		return
	}
	ticket, err := s.deps.Tickets.GetByID(ctx, candidate.TicketID)
	if err != nil {
		report.Failed++
		logger.Error("load breached ticket failed", zap.Error(err))
		return
	}

	breach := Breach{
		Kind:       kind,
		StatusID:   candidate.StatusID,
		PolicyID:   candidate.PolicyID,
		Deadline:   candidate.Deadline,
		DetectedAt: now,
	}
	policy, err := s.deps.Policies.GetByID(ctx, candidate.PolicyID)
	switch {
	case err == nil:
		breach.PolicyName = policy.Name
	case apperrors.IsNotFound(err):
		policy = nil
		breach.PolicyName = candidate.PolicyID
	default:
		report.Failed++
		logger.Error("load breach policy failed", zap.Error(err))
		return
	}

	if err := s.deps.Handler.HandleBreach(ctx, ticket, policy, breach); err != nil {
		report.Failed++
		logger.Error("breach escalation failed", zap.Error(err))
	}
}
