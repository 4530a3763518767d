package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tgvault/backend/internal/domain"
)

func TestCreateAlertRequest_Validate(t *testing.T) {
	t.Run("Should accept a minimal request", func(t *testing.T) {
		req := &CreateAlertRequest{Keyword: "urgent"}
		assert.Empty(t, req.Validate())
	})

	t.Run("Should require a keyword", func(t *testing.T) {
		req := &CreateAlertRequest{Keyword: "   "}
		errs := req.Validate()
		assert.Contains(t, errs, "keyword")
	})

	t.Run("Should reject unknown match types", func(t *testing.T) {
		req := &CreateAlertRequest{Keyword: "urgent", MatchType: "fuzzy"}
		errs := req.Validate()
		assert.Contains(t, errs, "match_type")
	})

	t.Run("Should require a webhook URL when notifications are on", func(t *testing.T) {
		req := &CreateAlertRequest{Keyword: "urgent", NotifyWebhook: true}
		errs := req.Validate()
		assert.Contains(t, errs, "webhook_url")
	})
}

func TestCreateAlertRequest_ToModel(t *testing.T) {
	req := &CreateAlertRequest{Keyword: "  invoice  "}
	alert := req.ToModel()

	assert.Equal(t, "invoice", alert.Keyword)
	assert.Equal(t, domain.MatchTypeContains, alert.MatchType)
	assert.True(t, alert.IsActive)
}

func TestCreateBackupRequest_Validate(t *testing.T) {
	t.Run("Should accept a minimal request", func(t *testing.T) {
		req := &CreateBackupRequest{AccountID: 1, Name: "weekly"}
		assert.Empty(t, req.Validate())
	})

	t.Run("Should require account and name", func(t *testing.T) {
		req := &CreateBackupRequest{}
		errs := req.Validate()
		assert.Contains(t, errs, "account_id")
		assert.Contains(t, errs, "name")
	})

	t.Run("Should reject unknown frequency and format", func(t *testing.T) {
		req := &CreateBackupRequest{AccountID: 1, Name: "x", Frequency: "hourly", Format: "xml"}
		errs := req.Validate()
		assert.Contains(t, errs, "frequency")
		assert.Contains(t, errs, "format")
	})
}

func TestCreateBackupRequest_ToModel(t *testing.T) {
	req := &CreateBackupRequest{AccountID: 1, Name: "weekly"}
	b := req.ToModel()

	assert.Equal(t, domain.BackupFrequencyWeekly, b.Frequency)
	assert.Equal(t, domain.ExportFormatJSON, b.Format)
	assert.True(t, b.IsActive)
}
