package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/automation"
	"github.com/spec-kit/helpdesk-sla/internal/calendar"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// CatalogService validates and stores operator configuration. Nothing
// invalid reaches evaluation: every save is checked first.
type CatalogService struct {
	calendars repository.CalendarRepository
	policies  repository.SlaPolicyRepository
	triggers  repository.TriggerRepository
	macros    repository.MacroRepository
	teams     repository.TeamRepository
	logger    *zap.Logger
}

// CatalogDependencies bundles the catalog repositories.
type CatalogDependencies struct {
	CalendarRepo repository.CalendarRepository
	PolicyRepo   repository.SlaPolicyRepository
	TriggerRepo  repository.TriggerRepository
	MacroRepo    repository.MacroRepository
	TeamRepo     repository.TeamRepository
	Logger       *zap.Logger
}

// NewCatalogService creates the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		calendars: deps.CalendarRepo,
		policies:  deps.PolicyRepo,
		triggers:  deps.TriggerRepo,
		macros:    deps.MacroRepo,
		teams:     deps.TeamRepo,
		logger:    logger,
	}
}

// SaveCalendar validates and upserts a business calendar.
func (s *CatalogService) SaveCalendar(ctx context.Context, cal *domain.BusinessCalendar) error {
	if strings.TrimSpace(cal.Name) == "" {
		return apperrors.NewConfigurationError("invalid calendar", map[string]any{"name": "required"})
	}
	if err := calendar.Validate(*cal); err != nil {
		return apperrors.NewConfigurationError("invalid calendar", map[string]any{"calendar": err.Error()})
	}
	assignID(&cal.ID)
	if err := s.calendars.Upsert(ctx, cal); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("calendar saved", zap.String("calendar_id", cal.ID))
	return nil
}

// SavePolicy validates and upserts an SLA policy.
func (s *CatalogService) SavePolicy(ctx context.Context, policy *domain.SlaPolicy) error {
	details := map[string]any{}
	if strings.TrimSpace(policy.Name) == "" {
		details["name"] = "required"
	}
	if policy.FirstResponseHours <= 0 {
		details["first_response_hours"] = "must be positive"
	}
	if policy.ResolutionHours <= 0 {
		details["resolution_hours"] = "must be positive"
	}
	if policy.MinPriority != nil {
		if parsed, ok := domain.ParsePriority(string(*policy.MinPriority)); ok {
			policy.MinPriority = &parsed
		} else {
			details["min_priority"] = "unknown priority"
		}
	}
	if policy.CalendarID != nil && *policy.CalendarID != "" {
		if _, err := s.calendars.GetByID(ctx, *policy.CalendarID); err != nil {
			if !apperrors.IsNotFound(err) {
				return apperrors.MapError(err)
			}
			details["calendar_id"] = "calendar not found"
		}
	}
	if len(details) > 0 {
		return apperrors.NewConfigurationError("invalid sla policy", details)
	}
	assignID(&policy.ID)
	if err := s.policies.Upsert(ctx, policy); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("sla policy saved", zap.String("policy_id", policy.ID))
	return nil
}

// SaveTrigger validates and upserts a trigger.
func (s *CatalogService) SaveTrigger(ctx context.Context, trigger *domain.Trigger) error {
	if err := automation.ValidateTrigger(trigger); err != nil {
		return err
	}
	assignID(&trigger.ID)
	if err := s.triggers.Upsert(ctx, trigger); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("trigger saved", zap.String("trigger_id", trigger.ID), zap.String("event", string(trigger.Event)))
	return nil
}

// SaveMacro validates and upserts a macro.
func (s *CatalogService) SaveMacro(ctx context.Context, macro *domain.Macro) error {
	if err := automation.ValidateMacro(macro); err != nil {
		return err
	}
	assignID(&macro.ID)
	if err := s.macros.Upsert(ctx, macro); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("macro saved", zap.String("macro_id", macro.ID))
	return nil
}

// SaveTeam validates and upserts a team. The round-robin position is kept.
func (s *CatalogService) SaveTeam(ctx context.Context, team *domain.Team) error {
	details := map[string]any{}
	if strings.TrimSpace(team.Name) == "" {
		details["name"] = "required"
	}
	switch team.AutoAssignMode {
	case "":
		team.AutoAssignMode = domain.AutoAssignManual
	case domain.AutoAssignManual, domain.AutoAssignRoundRobin:
	default:
		details["auto_assign_mode"] = "must be manual or round_robin"
	}
	if len(details) > 0 {
		return apperrors.NewConfigurationError("invalid team", details)
	}
	if err := s.teams.Upsert(ctx, team); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("team saved", zap.String("team_id", team.ID))
	return nil
}

func (s *CatalogService) ListCalendars(ctx context.Context) ([]domain.BusinessCalendar, error) {
	items, err := s.calendars.List(ctx)
	return items, apperrors.MapError(err)
}

func (s *CatalogService) ListPolicies(ctx context.Context) ([]domain.SlaPolicy, error) {
	items, err := s.policies.List(ctx)
	return items, apperrors.MapError(err)
}

func (s *CatalogService) ListTriggers(ctx context.Context) ([]domain.Trigger, error) {
	items, err := s.triggers.List(ctx)
	return items, apperrors.MapError(err)
}

func (s *CatalogService) ListMacros(ctx context.Context) ([]domain.Macro, error) {
	items, err := s.macros.List(ctx)
	return items, apperrors.MapError(err)
}

func (s *CatalogService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	items, err := s.teams.List(ctx)
	return items, apperrors.MapError(err)
}

// DeleteCalendar refuses to remove a calendar still referenced by a policy.
func (s *CatalogService) DeleteCalendar(ctx context.Context, id string) error {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	for _, policy := range policies {
		if policy.CalendarID != nil && *policy.CalendarID == id {
			return apperrors.NewConflict("calendar in use", map[string]any{"calendar_id": id, "policy_id": policy.ID})
		}
	}
	return notFoundAs("calendar", id, s.calendars.Delete(ctx, id))
}

func (s *CatalogService) DeletePolicy(ctx context.Context, id string) error {
	return notFoundAs("sla policy", id, s.policies.Delete(ctx, id))
}

func (s *CatalogService) DeleteTrigger(ctx context.Context, id string) error {
	return notFoundAs("trigger", id, s.triggers.Delete(ctx, id))
}

func (s *CatalogService) DeleteMacro(ctx context.Context, id string) error {
	return notFoundAs("macro", id, s.macros.Delete(ctx, id))
}

func notFoundAs(resource, id string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func assignID(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = uuid.NewString()
	}
}
