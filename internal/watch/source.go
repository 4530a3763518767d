package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Source is the progress endpoint pair a watcher observes: fetch the current
// snapshot, and request advisory cancellation.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
	Cancel(ctx context.Context) error
}

// HTTPSource reads task progress from the archive server's sync API.
type HTTPSource struct {
	statusURL string
	cancelURL string
	token     string
	http      *resty.Client
}

func NewHTTPSource(baseURL, taskID, token string) *HTTPSource {
	return &HTTPSource{
		statusURL: fmt.Sprintf("%s/api/v1/sync/%s/status", baseURL, taskID),
		cancelURL: fmt.Sprintf("%s/api/v1/sync/%s/cancel", baseURL, taskID),
		token:     token,
		http: resty.New().
			SetTimeout(10 * time.Second),
	}
}

func (s *HTTPSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	req := s.http.R().
		SetContext(ctx).
		SetResult(&snap).
		SetError(&snap)
	if s.token != "" {
		req.SetHeader("X-API-Token", s.token)
	}

	resp, err := req.Get(s.statusURL)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		if snap.Error != "" {
			return nil, errors.New("watch: " + snap.Error)
		}
		return nil, fmt.Errorf("watch: status request returned http %d", resp.StatusCode())
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Cancel posts the cancellation request. The response never carries a full
// snapshot; the next poll confirms the outcome.
func (s *HTTPSource) Cancel(ctx context.Context) error {
	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	req := s.http.R().
		SetContext(ctx).
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetResult(&result).
		SetError(&result)
	if s.token != "" {
		req.SetHeader("X-API-Token", s.token)
	}

	resp, err := req.Post(s.cancelURL)
	if err != nil {
		return err
	}
	if !result.Success {
		if result.Error != "" {
			return errors.New(result.Error)
		}
		return fmt.Errorf("cancellation failed (http %d)", resp.StatusCode())
	}
	return nil
}
