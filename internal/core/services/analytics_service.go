package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tgvault/backend/internal/core/ports"
	"github.com/tgvault/backend/internal/domain"
	"github.com/tgvault/backend/internal/infrastructure/logger"
)

const (
	summaryCacheType = "summary"
	summaryCacheTTL  = 15 * time.Minute
	activityDays     = 30
	topSendersLimit  = 10
)

type analyticsService struct {
	chats    ports.ChatRepository
	messages ports.MessageRepository
	cache    ports.AnalyticsCacheRepository
	logger   *logger.Logger
}

type AnalyticsServiceConfig struct {
	Chats    ports.ChatRepository
	Messages ports.MessageRepository
	Cache    ports.AnalyticsCacheRepository
	Logger   *logger.Logger
}

func NewAnalyticsService(cfg AnalyticsServiceConfig) ports.AnalyticsService {
	return &analyticsService{
		chats:    cfg.Chats,
		messages: cfg.Messages,
		cache:    cfg.Cache,
		logger:   cfg.Logger,
	}
}

// Summary computes account-wide statistics, served from cache while fresh.
func (s *analyticsService) Summary(ctx context.Context, accountID uint) (*ports.AnalyticsSummary, error) {
	if cached, err := s.cache.Get(ctx, accountID, summaryCacheType); err == nil {
		if time.Now().Before(cached.ExpiresAt) {
			if summary := decodeSummary(cached.Data); summary != nil {
				summary.Cached = true
				return summary, nil
			}
		}
	}

	summary := &ports.AnalyticsSummary{}

	totalChats, err := s.chats.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summary.TotalChats = totalChats

	totalMessages, err := s.messages.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summary.TotalMessages = totalMessages

	deleted, err := s.messages.CountDeletedByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summary.DeletedMessages = deleted

	daily, err := s.messages.DailyCounts(ctx, accountID, activityDays)
	if err != nil {
		return nil, err
	}
	summary.DailyActivity = daily

	top, err := s.messages.TopSenders(ctx, accountID, topSendersLimit)
	if err != nil {
		return nil, err
	}
	summary.TopSenders = top

	s.store(ctx, accountID, summary)
	return summary, nil
}

func (s *analyticsService) store(ctx context.Context, accountID uint, summary *ports.AnalyticsSummary) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	var data domain.JSONB
	if err := json.Unmarshal(raw, &data); err != nil {
		return
	}

	cache := &domain.AnalyticsCache{
		AccountID: accountID,
		CacheType: summaryCacheType,
		Data:      data,
		ExpiresAt: time.Now().Add(summaryCacheTTL),
	}
	if err := s.cache.Put(ctx, cache); err != nil {
		s.logger.Warnw("analytics_cache_put_failed", "account_id", accountID, "error", err)
	}
}

func decodeSummary(data domain.JSONB) *ports.AnalyticsSummary {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var summary ports.AnalyticsSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}
	return &summary
}
