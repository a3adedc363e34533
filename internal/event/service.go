// Package event はダッシュボード機能（booster/fideliser）のイベント記録を提供する。
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Inrcyteam/inrcy-app-sub002/internal/model"
	"github.com/Inrcyteam/inrcy-app-sub002/internal/repository"
)

// streamEventTypes はストリームごとに許可するイベント種別の許可リスト。
// 未知のストリーム、許可外の種別はすべて拒否する。
var streamEventTypes = map[string]map[string]bool{
	"booster": {
		"campaign_started":   true,
		"campaign_completed": true,
		"post_published":     true,
		"post_failed":        true,
	},
	"fideliser": {
		"reward_granted":    true,
		"reward_redeemed":   true,
		"customer_enrolled": true,
		"message_sent":      true,
	},
}

// RecordInput はイベント記録の入力。
type RecordInput struct {
	EventType string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// Service はダッシュボードイベントに関するビジネスロジックを提供する。
type Service struct {
	repo repository.DashboardEventRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.DashboardEventRepository) *Service {
	return &Service{repo: repo}
}

// Record はイベントを検証して保存する。
// ストリームと種別の組み合わせが許可リストにない場合はエラーを返す。
func (s *Service) Record(ctx context.Context, userID, stream string, input RecordInput) (*model.DashboardEvent, error) {
	allowed, ok := streamEventTypes[stream]
	if !ok {
		return nil, model.NewInvalidEventStreamError(stream)
	}
	if !allowed[input.EventType] {
		return nil, model.NewInvalidEventTypeError(input.EventType)
	}

	// ペイロードはJSONとして妥当かだけ確認し、中身は解釈しない
	payload := []byte(input.Payload)
	if len(payload) > 0 && !json.Valid(payload) {
		return nil, model.NewInvalidEventTypeError(input.EventType)
	}

	record := &model.DashboardEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Stream:    stream,
		EventType: input.EventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	slog.Info("dashboard event recorded",
		slog.String("user_id", userID),
		slog.String("stream", stream),
		slog.String("event_type", input.EventType),
	)

	return record, nil
}
