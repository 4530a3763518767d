package dto

import (
	"strings"

	"github.com/tgvault/backend/internal/domain"
)

type CreateAlertRequest struct {
	Keyword       string `json:"keyword"`
	MatchType     string `json:"match_type"`
	CaseSensitive bool   `json:"case_sensitive"`
	NotifyWebhook bool   `json:"notify_webhook"`
	WebhookURL    string `json:"webhook_url"`
}

func (r *CreateAlertRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Keyword) == "" {
		errors["keyword"] = "keyword is required"
	}
	switch r.MatchType {
	case "", string(domain.MatchTypeContains), string(domain.MatchTypeExact), string(domain.MatchTypeRegex):
	default:
		errors["match_type"] = "match_type must be contains, exact or regex"
	}
	if r.NotifyWebhook && strings.TrimSpace(r.WebhookURL) == "" {
		errors["webhook_url"] = "webhook_url is required when notify_webhook is set"
	}
	return errors
}

// ToModel builds the alert row. New alerts start active; contains is the
// default match type.
func (r *CreateAlertRequest) ToModel() *domain.KeywordAlert {
	matchType := domain.MatchType(r.MatchType)
	if r.MatchType == "" {
		matchType = domain.MatchTypeContains
	}
	return &domain.KeywordAlert{
		Keyword:       strings.TrimSpace(r.Keyword),
		MatchType:     matchType,
		CaseSensitive: r.CaseSensitive,
		IsActive:      true,
		NotifyWebhook: r.NotifyWebhook,
		WebhookURL:    strings.TrimSpace(r.WebhookURL),
	}
}
