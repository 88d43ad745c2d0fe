// Package catalog loads calendars, teams, SLA policies, triggers and macros
// from a YAML file and keeps them in sync while the file changes.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// File is the on-disk catalog layout.
type File struct {
	Calendars []domain.BusinessCalendar `yaml:"calendars"`
	Teams     []domain.Team             `yaml:"teams"`
	Policies  []domain.SlaPolicy        `yaml:"policies"`
	Triggers  []domain.Trigger          `yaml:"triggers"`
	Macros    []domain.Macro            `yaml:"macros"`
}

// Store persists catalog entries. *service.CatalogService satisfies it, so
// file entries go through the same validation as API writes.
type Store interface {
	SaveCalendar(ctx context.Context, cal *domain.BusinessCalendar) error
	SaveTeam(ctx context.Context, team *domain.Team) error
	SavePolicy(ctx context.Context, policy *domain.SlaPolicy) error
	SaveTrigger(ctx context.Context, trigger *domain.Trigger) error
	SaveMacro(ctx context.Context, macro *domain.Macro) error
}

// Summary counts the entries saved by Apply.
type Summary struct {
	Calendars int
	Teams     int
	Policies  int
	Triggers  int
	Macros    int
	Rejected  int
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var file File
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &file, nil
}

// Load reads and parses the catalog at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Apply saves every entry in dependency order: calendars and teams before the
// policies that reference them, then triggers and macros. A rejected entry is
// logged and reported but does not stop the rest of the file.
func Apply(ctx context.Context, store Store, file *File, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		summary Summary
		errs    []error
	)
	save := func(kind, id string, counter *int, fn func() error) {
		if err := fn(); err != nil {
			summary.Rejected++
			logger.Warn("catalog entry rejected", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s %q: %w", kind, id, err))
			return
		}
		*counter++
	}

	for i := range file.Calendars {
		cal := &file.Calendars[i]
		save("calendar", entryName(cal.ID, cal.Name), &summary.Calendars, func() error { return store.SaveCalendar(ctx, cal) })
	}
	for i := range file.Teams {
		team := &file.Teams[i]
		save("team", entryName(team.ID, team.Name), &summary.Teams, func() error { return store.SaveTeam(ctx, team) })
	}
	for i := range file.Policies {
		policy := &file.Policies[i]
		save("policy", entryName(policy.ID, policy.Name), &summary.Policies, func() error { return store.SavePolicy(ctx, policy) })
	}
	for i := range file.Triggers {
		trigger := &file.Triggers[i]
		save("trigger", entryName(trigger.ID, trigger.Name), &summary.Triggers, func() error { return store.SaveTrigger(ctx, trigger) })
	}
	for i := range file.Macros {
		macro := &file.Macros[i]
		save("macro", entryName(macro.ID, macro.Name), &summary.Macros, func() error { return store.SaveMacro(ctx, macro) })
	}

	logger.Info("catalog applied",
		zap.Int("calendars", summary.Calendars),
		zap.Int("teams", summary.Teams),
		zap.Int("policies", summary.Policies),
		zap.Int("triggers", summary.Triggers),
		zap.Int("macros", summary.Macros),
		zap.Int("rejected", summary.Rejected),
	)
	return summary, errors.Join(errs...)
}

// LoadAndApply is Load followed by Apply.
func LoadAndApply(ctx context.Context, path string, store Store, logger *zap.Logger) (Summary, error) {
	file, err := Load(path)
	if err != nil {
		return Summary{}, err
	}
	return Apply(ctx, store, file, logger)
}

func entryName(id, name string) string {
	if id != "" {
		return id
	}
	return name
}
