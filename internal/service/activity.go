package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"banko/internal/model"
	"banko/internal/repository"
)

// Feed item kinds.
const (
	FeedKindTransaction = "transaction"
	FeedKindGameEvent   = "game_event"
)

// FeedItem is one entry in the merged activity feed: either a ledger
// entry or a game event, tagged by kind with exactly one payload set.
type FeedItem struct {
	Kind        string             `json:"kind"`
	CreatedAt   time.Time          `json:"created_at"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	GameEvent   *model.GameEvent   `json:"game_event,omitempty"`
}

// ActivityService reconstructs the merged, bounded activity feed from the
// transaction ledger and the game event log.
type ActivityService struct {
	txRepo    *repository.TransactionRepository
	eventRepo *repository.EventRepository
	feedLimit int
}

// NewActivityService creates a new ActivityService instance.
func NewActivityService(txRepo *repository.TransactionRepository, eventRepo *repository.EventRepository, feedLimit int) *ActivityService {
	return &ActivityService{
		txRepo:    txRepo,
		eventRepo: eventRepo,
		feedLimit: feedLimit,
	}
}

// Transactions retrieves the room's most recent ledger entries.
func (s *ActivityService) Transactions(ctx context.Context, roomID uuid.UUID, limit int) ([]*model.Transaction, error) {
	return s.txRepo.ListByRoom(ctx, roomID, s.clamp(limit))
}

// Events retrieves the room's most recent game events.
func (s *ActivityService) Events(ctx context.Context, roomID uuid.UUID, limit int) ([]*model.GameEvent, error) {
	return s.eventRepo.ListByRoom(ctx, roomID, s.clamp(limit))
}

// Feed retrieves the merged activity feed, newest first. Both sources are
// read bounded and the merge is re-bounded, so the feed never needs
// unbounded history.
func (s *ActivityService) Feed(ctx context.Context, roomID uuid.UUID, limit int) ([]FeedItem, error) {
	limit = s.clamp(limit)

	transactions, err := s.txRepo.ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(transactions)+len(events))
	for _, t := range transactions {
		items = append(items, FeedItem{Kind: FeedKindTransaction, CreatedAt: t.CreatedAt, Transaction: t})
	}
	for _, e := range events {
		items = append(items, FeedItem{Kind: FeedKindGameEvent, CreatedAt: e.CreatedAt, GameEvent: e})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// DecodeDiceRoll validates and decodes a dice_roll payload at the
// boundary. Event payloads are stored as JSON but every kind has a fixed
// shape per tag.
func DecodeDiceRoll(e *model.GameEvent) (model.DiceRollPayload, error) {
	var p model.DiceRollPayload
	if e.EventType != model.EventTypeDiceRoll {
		return p, fmt.Errorf("%w: expected %s, got %s", ErrInvalidStatus, model.EventTypeDiceRoll, e.EventType)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("malformed dice roll payload: %w", err)
	}
	if p.Sides < 2 || p.Roll < 1 || p.Roll > p.Sides {
		return p, fmt.Errorf("dice roll payload out of range: roll=%d sides=%d", p.Roll, p.Sides)
	}
	return p, nil
}

func (s *ActivityService) clamp(limit int) int {
	if limit <= 0 || limit > s.feedLimit {
		return s.feedLimit
	}
	return limit
}
