package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/config"
	"github.com/spec-kit/helpdesk-sla/internal/events"
)

// NotificationService relays scheduled activities and SLA breaches to the
// configured webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	client     *http.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout()},
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventActivityScheduled, n.handleActivityScheduled)
	n.dispatcher.Subscribe(events.EventSlaBreached, n.handleSlaBreached)
}

func (n *NotificationService) handleActivityScheduled(ctx context.Context, event events.Event) error {
	n.logger.Info("ActivityScheduled", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleSlaBreached(ctx context.Context, event events.Event) error {
	n.logger.Warn("SlaBreached", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendWebhook(ctx, event)
	return nil
}

// sendWebhook delivers at most once; failures are only logged.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	logger := n.logger.With(
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	if err := n.post(ctx, event); err != nil {
		logger.Error("webhook delivery failed", zap.Error(err))
		return
	}
	logger.Debug("webhook delivered", zap.String("event_id", event.ID))
}

func (n *NotificationService) post(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(event.Type))
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
