package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"banko/internal/config"
	"banko/internal/model"
	"banko/internal/notifier"
	"banko/internal/pkg/roomcode"
	"banko/internal/repository"
)

// codeRetries bounds regeneration attempts when a generated join code
// collides with a live room. With a 32^6 code space collisions are rare;
// hitting the bound repeatedly indicates something else is wrong.
const codeRetries = 5

// RegistryService manages room configuration and the player roster.
type RegistryService struct {
	pool       *pgxpool.Pool
	roomRepo   *repository.RoomRepository
	playerRepo *repository.PlayerRepository
	cfg        config.RoomConfig
	notifier   notifier.Notifier
}

// NewRegistryService creates a new RegistryService instance.
func NewRegistryService(
	pool *pgxpool.Pool,
	roomRepo *repository.RoomRepository,
	playerRepo *repository.PlayerRepository,
	cfg config.RoomConfig,
	n notifier.Notifier,
) *RegistryService {
	return &RegistryService{
		pool:       pool,
		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		cfg:        cfg,
		notifier:   n,
	}
}

// CreateRoomParams carries room creation input. Zero-valued numeric fields
// fall back to configured defaults.
type CreateRoomParams struct {
	RoomName        string
	BankDisplayName string
	InitialBalance  int64
	SalaryAmount    int64
	DiceSides       int
	CreatorNickname string
	CreatorColor    string
}

// CreateRoom creates a room in lobby status with an empty pot and atomically
// seats the creator as the sole bank operator. The operator flag is set here
// and never changes for the life of the room.
func (s *RegistryService) CreateRoom(ctx context.Context, userID uuid.UUID, p CreateRoomParams) (*model.Room, *model.Player, error) {
	if p.RoomName == "" || p.CreatorNickname == "" || p.CreatorColor == "" {
		return nil, nil, ErrMissingField
	}
	if p.BankDisplayName == "" {
		p.BankDisplayName = "Bank"
	}
	if p.InitialBalance == 0 {
		p.InitialBalance = s.cfg.DefaultInitialBalance
	}
	if p.InitialBalance < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if p.SalaryAmount == 0 {
		p.SalaryAmount = s.cfg.DefaultSalary
	}
	if p.SalaryAmount < 0 {
		return nil, nil, ErrInvalidAmount
	}
	if p.DiceSides == 0 {
		p.DiceSides = s.cfg.DefaultDiceSides
	}
	if p.DiceSides < s.cfg.MinDiceSides || p.DiceSides > s.cfg.MaxDiceSides {
		return nil, nil, ErrInvalidDiceSides
	}

	for attempt := 0; attempt < codeRetries; attempt++ {
		code, err := roomcode.Generate()
		if err != nil {
			return nil, nil, err
		}

		room, operator, err := s.createRoomWithCode(ctx, userID, p, code)
		if errors.Is(err, repository.ErrRoomCodeTaken) {
			log.Warn().Str("room_code", code).Msg("Join code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		log.Info().
			Str("room_code", room.RoomCode).
			Str("room_id", room.ID.String()).
			Msg("Room created")
		return room, operator, nil
	}

	return nil, nil, fmt.Errorf("failed to generate a unique room code after %d attempts", codeRetries)
}

// createRoomWithCode inserts the room and its operator seat in one
// transaction: a room never exists without exactly one operator.
func (s *RegistryService) createRoomWithCode(ctx context.Context, userID uuid.UUID, p CreateRoomParams, code string) (*model.Room, *model.Player, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	room, err := s.roomRepo.Create(ctx, tx, &model.Room{
		ID:                   uuid.New(),
		RoomCode:             code,
		RoomName:             p.RoomName,
		BankDisplayName:      p.BankDisplayName,
		InitialPlayerBalance: p.InitialBalance,
		SalaryAmount:         p.SalaryAmount,
		DiceSides:            p.DiceSides,
		Status:               model.RoomStatusLobby,
	})
	if err != nil {
		return nil, nil, err
	}

	operator, err := s.playerRepo.Create(ctx, tx, &model.Player{
		ID:             uuid.New(),
		RoomID:         room.ID,
		UserID:         userID,
		Nickname:       p.CreatorNickname,
		Color:          p.CreatorColor,
		CurrentBalance: room.InitialPlayerBalance,
		IsBankOperator: true,
		Status:         model.PlayerStatusActive,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit room creation: %w", err)
	}
	return room, operator, nil
}

// JoinRoom seats a caller identity in a lobby room. Joining is idempotent
// per identity: a second join returns the existing seat instead of erroring.
func (s *RegistryService) JoinRoom(ctx context.Context, code string, userID uuid.UUID, nickname, color string) (*model.Player, error) {
	if nickname == "" || color == "" {
		return nil, ErrMissingField
	}

	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.Status != model.RoomStatusLobby {
		return nil, ErrRoomNotJoinable
	}

	if existing, err := s.playerRepo.GetByRoomAndUser(ctx, room.ID, userID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrPlayerNotFound) {
		return nil, err
	}

	player, err := s.playerRepo.Create(ctx, nil, &model.Player{
		ID:             uuid.New(),
		RoomID:         room.ID,
		UserID:         userID,
		Nickname:       nickname,
		Color:          color,
		CurrentBalance: room.InitialPlayerBalance,
		IsBankOperator: false,
		Status:         model.PlayerStatusActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrColorTaken):
			return nil, ErrColorTaken
		case errors.Is(err, repository.ErrSeatTaken):
			// Lost a race against our own identity joining twice; the
			// existing seat is the answer either way.
			return s.playerRepo.GetByRoomAndUser(ctx, room.ID, userID)
		default:
			return nil, err
		}
	}

	s.notifier.Publish(notifier.Event{Kind: notifier.KindPlayerUpdated, RoomID: room.ID, Data: player})
	return player, nil
}

// StartGame transitions a lobby room to in_progress. Operator-only, and
// rejected outright when fewer than two players are seated.
func (s *RegistryService) StartGame(ctx context.Context, code string, userID uuid.UUID) (*model.Room, error) {
	room, err := s.requireOperator(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.playerRepo.CountByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, ErrNotEnoughPlayers
	}

	ok, err := s.roomRepo.UpdateStatus(ctx, room.ID, model.RoomStatusLobby, model.RoomStatusInProgress)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStatus
	}

	room, err = s.roomRepo.GetByID(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(notifier.Event{Kind: notifier.KindRoomUpdated, RoomID: room.ID, Data: room})
	return room, nil
}

// FinishGame transitions an in_progress room to finished. Terminal and
// irreversible.
func (s *RegistryService) FinishGame(ctx context.Context, code string, userID uuid.UUID) (*model.Room, error) {
	room, err := s.requireOperator(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	ok, err := s.roomRepo.UpdateStatus(ctx, room.ID, model.RoomStatusInProgress, model.RoomStatusFinished)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidStatus
	}

	room, err = s.roomRepo.GetByID(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(notifier.Event{Kind: notifier.KindRoomUpdated, RoomID: room.ID, Data: room})
	return room, nil
}

// UpdatePlayerStatus toggles a seat between active and defeated.
// Operator-only; unlike the room lifecycle this transition is reversible.
func (s *RegistryService) UpdatePlayerStatus(ctx context.Context, code string, userID, playerID uuid.UUID, status model.PlayerStatus) (*model.Player, error) {
	if status != model.PlayerStatusActive && status != model.PlayerStatusDefeated {
		return nil, ErrInvalidStatus
	}

	room, err := s.requireOperator(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	target, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if target.RoomID != room.ID {
		return nil, ErrPlayerNotFound
	}

	player, err := s.playerRepo.UpdateStatus(ctx, playerID, status)
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(notifier.Event{Kind: notifier.KindPlayerUpdated, RoomID: room.ID, Data: player})
	return player, nil
}

// GetRoomByCode retrieves a room for display.
func (s *RegistryService) GetRoomByCode(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// ListPlayers retrieves the room's roster.
func (s *RegistryService) ListPlayers(ctx context.Context, roomID uuid.UUID) ([]*model.Player, error) {
	return s.playerRepo.ListByRoom(ctx, roomID)
}

// GetPlayer retrieves a single player, scoped to the given room.
func (s *RegistryService) GetPlayer(ctx context.Context, roomID, playerID uuid.UUID) (*model.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if player.RoomID != roomID {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// GetSeat retrieves the seat a caller identity holds in a room.
func (s *RegistryService) GetSeat(ctx context.Context, roomID, userID uuid.UUID) (*model.Player, error) {
	player, err := s.playerRepo.GetByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}

// requireOperator resolves the room and verifies the caller holds its bank
// operator seat. Operator checks are enforced here, server-side, not in UI.
func (s *RegistryService) requireOperator(ctx context.Context, code string, userID uuid.UUID) (*model.Room, error) {
	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	seat, err := s.playerRepo.GetByRoomAndUser(ctx, room.ID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPlayerNotFound) {
			return nil, ErrNotAuthorized
		}
		return nil, err
	}
	if !seat.IsBankOperator {
		return nil, ErrNotAuthorized
	}
	return room, nil
}
