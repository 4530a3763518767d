package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

type alertService struct {
	alerts ports.AlertRepository
	logger *logger.Logger
	http   *resty.Client
}

type AlertServiceConfig struct {
	Alerts ports.AlertRepository
	Logger *logger.Logger
}

func NewAlertService(cfg AlertServiceConfig) ports.AlertService {
	return &alertService{
		alerts: cfg.Alerts,
		logger: cfg.Logger,
		http: resty.New().
			SetTimeout(10 * time.Second).
			SetRetryCount(2),
	}
}

// CreateAlert validates and stores a new keyword alert. Regex patterns are
// compiled up front so a broken pattern is rejected instead of silently never
// matching.
func (s *alertService) CreateAlert(ctx context.Context, alert *domain.KeywordAlert) error {
	if alert.MatchType == domain.MatchTypeRegex {
		if _, err := regexp.Compile(alert.Keyword); err != nil {
			return ErrAlertBadPattern
		}
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		return err
	}
	s.logger.Infow("alert_created", "alert_id", alert.ID, "keyword", alert.Keyword, "match_type", alert.MatchType)
	return nil
}

func (s *alertService) ListAlerts(ctx context.Context) ([]domain.KeywordAlert, error) {
	return s.alerts.List(ctx)
}

// ToggleAlert flips an alert between active and paused.
func (s *alertService) ToggleAlert(ctx context.Context, id uint) (*domain.KeywordAlert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, ErrAlertNotFound
	}

	alert.IsActive = !alert.IsActive
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	s.logger.Infow("alert_toggled", "alert_id", alert.ID, "active", alert.IsActive)
	return alert, nil
}

func (s *alertService) DeleteAlert(ctx context.Context, id uint) error {
	if _, err := s.alerts.GetByID(ctx, id); err != nil {
		return ErrAlertNotFound
	}
	if err := s.alerts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("alert_deleted", "alert_id", id)
	return nil
}

// EvaluateMessage matches a new or edited message against all active alerts.
// Failures are logged and swallowed so the sync worker is never blocked.
func (s *alertService) EvaluateMessage(ctx context.Context, msg *domain.Message) {
	if msg.Text == "" {
		return
	}

	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		s.logger.Errorw("alert_list_failed", "error", err)
		return
	}

	for i := range alerts {
		alert := &alerts[i]
		if !Matches(alert, msg.Text) {
			continue
		}

		trigger := &domain.AlertTrigger{
			AlertID:   alert.ID,
			MessageID: msg.ID,
		}

		if alert.NotifyWebhook && alert.WebhookURL != "" {
			trigger.Notified = s.notify(ctx, alert, msg)
		}

		if err := s.alerts.CreateTrigger(ctx, trigger); err != nil {
			continue
		}

		now := time.Now()
		alert.LastTriggered = &now
		alert.TriggerCount++
		if err := s.alerts.Update(ctx, alert); err != nil {
			s.logger.Errorw("alert_update_failed", "alert_id", alert.ID, "error", err)
		}

		s.logger.Infow("alert_triggered", "alert_id", alert.ID, "keyword", alert.Keyword, "message_id", msg.ID)
	}
}

// Matches reports whether text matches the alert's keyword under its match
// type. Broken regex patterns never match.
func Matches(alert *domain.KeywordAlert, text string) bool {
	keyword := alert.Keyword
	haystack := text
	if !alert.CaseSensitive {
		keyword = strings.ToLower(keyword)
		haystack = strings.ToLower(haystack)
	}

	switch alert.MatchType {
	case domain.MatchTypeExact:
		return haystack == keyword
	case domain.MatchTypeRegex:
		pattern := alert.Keyword
		if !alert.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	default:
		return strings.Contains(haystack, keyword)
	}
}

func (s *alertService) notify(ctx context.Context, alert *domain.KeywordAlert, msg *domain.Message) bool {
	payload := map[string]interface{}{
		"alert_id":   alert.ID,
		"keyword":    alert.Keyword,
		"message_id": msg.ID,
		"text":       msg.Text,
		"sender":     msg.SenderName,
		"date":       msg.Date,
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(alert.WebhookURL)
	if err != nil {
		s.logger.Warnw("alert_webhook_failed", "alert_id", alert.ID, "error", err)
		return false
	}
	if !resp.IsSuccess() {
		s.logger.Warnw("alert_webhook_rejected", "alert_id", alert.ID, "status", resp.StatusCode())
		return false
	}
	return true
}
