package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"

	"banko/internal/model"
	"banko/internal/notifier"
	"banko/internal/repository"
)

// DiceService records dice rolls as game events. Rolls carry no money;
// they share the activity feed's append-only ordering model.
type DiceService struct {
	roomRepo   *repository.RoomRepository
	playerRepo *repository.PlayerRepository
	eventRepo  *repository.EventRepository
	notifier   notifier.Notifier
	roll       func(sides int) int
}

// NewDiceService creates a new DiceService instance.
func NewDiceService(
	roomRepo *repository.RoomRepository,
	playerRepo *repository.PlayerRepository,
	eventRepo *repository.EventRepository,
	n notifier.Notifier,
) *DiceService {
	return &DiceService{
		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		eventRepo:  eventRepo,
		notifier:   n,
		roll: func(sides int) int {
			return rand.IntN(sides) + 1
		},
	}
}

// RollDice rolls a die with the given side count for the caller's seat and
// records the result. The recorded payload captures the side count at roll
// time; the room's dice configuration is not consulted when rendering
// history.
func (s *DiceService) RollDice(ctx context.Context, userID uuid.UUID, roomID uuid.UUID, sides int) (int, *model.GameEvent, error) {
	if sides < 2 {
		return 0, nil, ErrInvalidDiceSides
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return 0, nil, ErrRoomNotFound
		}
		return 0, nil, err
	}
	if room.Status != model.RoomStatusInProgress {
		return 0, nil, ErrInvalidStatus
	}

	seat, err := s.playerRepo.GetByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return 0, nil, ErrNotAuthorized
		}
		return 0, nil, err
	}

	roll := s.roll(sides)
	payload, err := json.Marshal(model.DiceRollPayload{Roll: roll, Sides: sides})
	if err != nil {
		return 0, nil, err
	}

	event, err := s.eventRepo.Insert(ctx, &model.GameEvent{
		ID:        uuid.New(),
		RoomID:    roomID,
		PlayerID:  seat.ID,
		EventType: model.EventTypeDiceRoll,
		Payload:   payload,
	})
	if err != nil {
		return 0, nil, err
	}

	s.notifier.Publish(notifier.Event{Kind: notifier.KindGameEventRecorded, RoomID: roomID, Data: event})
	return roll, event, nil
}
