package automation

import (
	"strings"

	"github.com/spec-kit/helpdesk-sla/internal/action"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/predicate"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

// ValidateTrigger rejects triggers that could not be evaluated or applied.
func ValidateTrigger(trigger *domain.Trigger) error {
	details := map[string]any{}
	if strings.TrimSpace(trigger.Name) == "" {
		details["name"] = "required"
	}
	if !trigger.Event.Valid() {
		details["event"] = "unknown event"
	}
	if err := predicate.Validate(trigger.Condition, domain.TicketSchema); err != nil {
		details["condition"] = err.Error()
	}
	bundleDetails(details, trigger.Actions)
	if len(details) > 0 {
		return apperrors.NewConfigurationError("invalid trigger", details)
	}
	return nil
}

// ValidateMacro rejects macros with a blank name or an unusable bundle.
func ValidateMacro(macro *domain.Macro) error {
	details := map[string]any{}
	if strings.TrimSpace(macro.Name) == "" {
		details["name"] = "required"
	}
	bundleDetails(details, macro.Actions)
	if len(details) > 0 {
		return apperrors.NewConfigurationError("invalid macro", details)
	}
	return nil
}

func bundleDetails(details map[string]any, bundle domain.ActionBundle) {
	if bundle.IsEmpty() {
		details["actions"] = "at least one action required"
		return
	}
	if err := action.Validate(bundle); err != nil {
		for key, value := range apperrors.ToDomainError(err).Details {
			details["actions."+key] = value
		}
	}
}
