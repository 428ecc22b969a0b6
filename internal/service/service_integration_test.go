// Integration tests exercising the full service layer against a real
// PostgreSQL container, including the concurrent scenarios the room lock
// and conditional updates exist for.
package service

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"banko/internal/config"
	"banko/internal/model"
	"banko/internal/notifier"
	"banko/internal/pkg/db"
	"banko/internal/pkg/lock"
	"banko/internal/repository"
)

type testServices struct {
	pool     *pgxpool.Pool
	registry *RegistryService
	ledger   *LedgerService
	loans    *LoanService
	requests *RequestService
	dice     *DiceService
	activity *ActivityService
	players  *repository.PlayerRepository
	rooms    *repository.RoomRepository
}

func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

func setupServices(t *testing.T) (*testServices, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	roomRepo := repository.NewRoomRepository(pool)
	playerRepo := repository.NewPlayerRepository(pool)
	txRepo := repository.NewTransactionRepository(pool)
	loanRepo := repository.NewLoanRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	eventRepo := repository.NewEventRepository(pool)

	locks := lock.NewRoomLock()
	noop := notifier.Noop{}

	roomCfg := config.RoomConfig{
		DefaultInitialBalance: 1500,
		DefaultSalary:         200,
		DefaultDiceSides:      12,
		MinDiceSides:          2,
		MaxDiceSides:          120,
		FeedLimit:             50,
	}

	svc := &testServices{
		pool:     pool,
		registry: NewRegistryService(pool, roomRepo, playerRepo, roomCfg, noop),
		ledger:   NewLedgerService(pool, roomRepo, playerRepo, txRepo, locks, noop),
		loans:    NewLoanService(pool, roomRepo, playerRepo, txRepo, loanRepo, locks, noop),
		requests: NewRequestService(pool, roomRepo, playerRepo, txRepo, requestRepo, locks, noop),
		dice:     NewDiceService(roomRepo, playerRepo, eventRepo, noop),
		activity: NewActivityService(txRepo, eventRepo, roomCfg.FeedLimit),
		players:  playerRepo,
		rooms:    roomRepo,
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return svc, cleanup
}

// startedRoom creates a room with an operator and one extra player and
// moves it to in_progress.
func startedRoom(t *testing.T, svc *testServices) (*model.Room, *model.Player, *model.Player) {
	t.Helper()
	ctx := context.Background()

	operatorUser := uuid.New()
	room, operator, err := svc.registry.CreateRoom(ctx, operatorUser, CreateRoomParams{
		RoomName:        "Friday Night",
		CreatorNickname: "alice",
		CreatorColor:    "red",
	})
	require.NoError(t, err)
	require.True(t, operator.IsBankOperator)

	player, err := svc.registry.JoinRoom(ctx, room.RoomCode, uuid.New(), "bob", "blue")
	require.NoError(t, err)

	room, err = svc.registry.StartGame(ctx, room.RoomCode, operatorUser)
	require.NoError(t, err)
	require.Equal(t, model.RoomStatusInProgress, room.Status)

	return room, operator, player
}

func TestCreateRoom_Defaults(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()

	room, operator, err := svc.registry.CreateRoom(context.Background(), uuid.New(), CreateRoomParams{
		RoomName:        "Friday Night",
		CreatorNickname: "alice",
		CreatorColor:    "red",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RoomStatusLobby, room.Status)
	assert.Equal(t, int64(1500), room.InitialPlayerBalance)
	assert.Equal(t, int64(200), room.SalaryAmount)
	assert.Equal(t, 12, room.DiceSides)
	assert.Equal(t, "Bank", room.BankDisplayName)
	assert.Equal(t, int64(1500), operator.CurrentBalance)
	assert.True(t, operator.IsBankOperator)
}

func TestJoinRoom_Idempotent(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, _, err := svc.registry.CreateRoom(ctx, uuid.New(), CreateRoomParams{
		RoomName: "Friday Night", CreatorNickname: "alice", CreatorColor: "red",
	})
	require.NoError(t, err)

	bobUser := uuid.New()
	first, err := svc.registry.JoinRoom(ctx, room.RoomCode, bobUser, "bob", "blue")
	require.NoError(t, err)

	// Same identity joining again gets the same seat back.
	second, err := svc.registry.JoinRoom(ctx, room.RoomCode, bobUser, "bobby", "green")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different identity taking the same color is rejected.
	_, err = svc.registry.JoinRoom(ctx, room.RoomCode, uuid.New(), "carol", "blue")
	assert.ErrorIs(t, err, ErrColorTaken)
}

func TestStartGame_RequiresTwoPlayers(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	operatorUser := uuid.New()
	room, _, err := svc.registry.CreateRoom(ctx, operatorUser, CreateRoomParams{
		RoomName: "Friday Night", CreatorNickname: "alice", CreatorColor: "red",
	})
	require.NoError(t, err)

	_, err = svc.registry.StartGame(ctx, room.RoomCode, operatorUser)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestCreateTransaction_TransferAndAuthorization(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	// Player pays the operator's seat.
	tx, err := svc.ledger.CreateTransaction(ctx, player.UserID, CreateTransactionParams{
		RoomID:       room.ID,
		Type:         model.TxTypePlayerToPlayer,
		Amount:       300,
		Description:  "Rent",
		FromPlayerID: &player.ID,
		ToPlayerID:   &operator.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.TxTypePlayerToPlayer, tx.Type)

	got, err := svc.players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got.CurrentBalance)

	got, err = svc.players.GetByID(ctx, operator.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), got.CurrentBalance)

	// A regular player cannot move someone else's money.
	_, err = svc.ledger.CreateTransaction(ctx, player.UserID, CreateTransactionParams{
		RoomID:       room.ID,
		Type:         model.TxTypePlayerToPlayer,
		Amount:       100,
		FromPlayerID: &operator.ID,
		ToPlayerID:   &player.ID,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Nor mint from the bank.
	_, err = svc.ledger.CreateTransaction(ctx, player.UserID, CreateTransactionParams{
		RoomID:     room.ID,
		Type:       model.TxTypeBankToPlayer,
		Amount:     100,
		ToPlayerID: &player.ID,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestCreateTransaction_Pot(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	_, err := svc.ledger.CreateTransaction(ctx, player.UserID, CreateTransactionParams{
		RoomID:       room.ID,
		Type:         model.TxTypePotIn,
		Amount:       150,
		FromPlayerID: &player.ID,
	})
	require.NoError(t, err)

	got, err := svc.rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), got.SharedPotBalance)

	// Pot overdraw is rejected.
	_, err = svc.ledger.CreateTransaction(ctx, operator.UserID, CreateTransactionParams{
		RoomID:     room.ID,
		Type:       model.TxTypePotOut,
		Amount:     500,
		ToPlayerID: &operator.ID,
	})
	assert.ErrorIs(t, err, ErrInsufficientPotFunds)

	_, err = svc.ledger.CreateTransaction(ctx, operator.UserID, CreateTransactionParams{
		RoomID:     room.ID,
		Type:       model.TxTypePotOut,
		Amount:     150,
		ToPlayerID: &operator.ID,
	})
	require.NoError(t, err)

	got, err = svc.rooms.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.SharedPotBalance)
}

// Two concurrent spends that together exceed the payer's balance: exactly
// one commits, and the room total stays consistent with the winner.
func TestCreateTransaction_ConcurrentSpend(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ledger.CreateTransaction(ctx, player.UserID, CreateTransactionParams{
				RoomID:       room.ID,
				Type:         model.TxTypePlayerToPlayer,
				Amount:       1000,
				FromPlayerID: &player.ID,
				ToPlayerID:   &operator.ID,
			})
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	got, err := svc.players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.CurrentBalance)

	total, err := svc.players.TotalBalance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), total)
}

func TestReverse(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	orig, err := svc.ledger.CreateTransaction(ctx, operator.UserID, CreateTransactionParams{
		RoomID:     room.ID,
		Type:       model.TxTypeBankToPlayer,
		Amount:     500,
		ToPlayerID: &player.ID,
	})
	require.NoError(t, err)

	rev, err := svc.ledger.Reverse(ctx, operator.UserID, room.ID, orig.ID, "fat finger")
	require.NoError(t, err)
	assert.Equal(t, model.TxTypeReversal, rev.Type)
	require.NotNil(t, rev.Reverses)
	assert.Equal(t, orig.ID, *rev.Reverses)

	got, err := svc.players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.CurrentBalance)

	// A second reversal of the same entry is rejected.
	_, err = svc.ledger.Reverse(ctx, operator.UserID, room.ID, orig.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyReversed)

	// Reversals themselves cannot be reversed.
	_, err = svc.ledger.Reverse(ctx, operator.UserID, room.ID, rev.ID, "undo the undo")
	assert.ErrorIs(t, err, ErrInvalidTransactionType)

	// Only the operator reverses.
	_, err = svc.ledger.Reverse(ctx, player.UserID, room.ID, orig.ID, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestPaySalary(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	tx, err := svc.ledger.PaySalary(ctx, operator.UserID, room.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TxTypeBankToPlayer, tx.Type)
	assert.Equal(t, int64(200), tx.Amount)
	assert.Equal(t, "Salary", tx.Description)

	got, err := svc.players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1700), got.CurrentBalance)
}

func TestLoanLifecycle(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	loan, fundTx, err := svc.loans.CreateLoan(ctx, operator.UserID, room.ID, player.ID, 500, "hotel money")
	require.NoError(t, err)
	assert.Equal(t, int64(500), loan.Amount)
	assert.Equal(t, model.LoanStatusActive, loan.Status)
	assert.Equal(t, model.TxTypeBankToPlayer, fundTx.Type)

	got, err := svc.players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.CurrentBalance)

	// Overpayment is rejected before any money moves.
	_, _, err = svc.loans.RepayLoan(ctx, player.UserID, room.ID, loan.ID, 600)
	assert.ErrorIs(t, err, ErrLoanOverpayment)

	loan, _, err = svc.loans.RepayLoan(ctx, player.UserID, room.ID, loan.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(300), loan.Amount)
	assert.Equal(t, model.LoanStatusActive, loan.Status)

	loan, repayTx, err := svc.loans.RepayLoan(ctx, player.UserID, room.ID, loan.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(0), loan.Amount)
	assert.Equal(t, model.LoanStatusPaid, loan.Status)
	assert.Equal(t, model.TxTypePlayerToBank, repayTx.Type)

	// Settled loans accept no further repayment.
	_, _, err = svc.loans.RepayLoan(ctx, player.UserID, room.ID, loan.ID, 100)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	active, err := svc.loans.ActiveLoans(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestPaymentRequest_AcceptMovesMoney(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	req, err := svc.requests.CreatePaymentRequest(ctx, player.UserID, room.ID, &operator.ID, 250, "rent")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, req.Status)

	resolved, transfer, err := svc.requests.RespondToPaymentRequest(ctx, operator.UserID, room.ID, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusAccepted, resolved.Status)
	require.NotNil(t, transfer)
	assert.Equal(t, model.TxTypePlayerToPlayer, transfer.Type)

	got, err := svc.players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1750), got.CurrentBalance)

	got, err = svc.players.GetByID(ctx, operator.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), got.CurrentBalance)
}

func TestPaymentRequest_RejectMovesNothing(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	req, err := svc.requests.CreatePaymentRequest(ctx, player.UserID, room.ID, &operator.ID, 250, "rent")
	require.NoError(t, err)

	resolved, transfer, err := svc.requests.RespondToPaymentRequest(ctx, operator.UserID, room.ID, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, resolved.Status)
	assert.Nil(t, transfer)

	total, err := svc.players.TotalBalance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), total)
}

// An open request accepted by two players concurrently: the first commit
// wins and pays, the loser gets ErrAlreadyProcessed, money moves once.
func TestPaymentRequest_ConcurrentAccept(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	operatorUser := uuid.New()
	room, operator, err := svc.registry.CreateRoom(ctx, operatorUser, CreateRoomParams{
		RoomName: "Friday Night", CreatorNickname: "alice", CreatorColor: "red",
	})
	require.NoError(t, err)
	bob, err := svc.registry.JoinRoom(ctx, room.RoomCode, uuid.New(), "bob", "blue")
	require.NoError(t, err)
	carol, err := svc.registry.JoinRoom(ctx, room.RoomCode, uuid.New(), "carol", "green")
	require.NoError(t, err)
	_, err = svc.registry.StartGame(ctx, room.RoomCode, operatorUser)
	require.NoError(t, err)

	req, err := svc.requests.CreatePaymentRequest(ctx, bob.UserID, room.ID, nil, 100, "anyone?")
	require.NoError(t, err)

	responders := []*model.Player{operator, carol}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, responder := range responders {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			_, _, errs[i] = svc.requests.RespondToPaymentRequest(ctx, userID, room.ID, req.ID, true)
		}(i, responder.UserID)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrAlreadyProcessed)
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	// Money moved exactly once: the requester is up 100, the table total
	// is conserved.
	got, err := svc.players.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1600), got.CurrentBalance)

	total, err := svc.players.TotalBalance(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), total)
}

func TestRollDiceAndFeed(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	room, operator, player := startedRoom(t, svc)

	roll, event, err := svc.dice.RollDice(ctx, player.UserID, room.ID, room.DiceSides)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, roll, 1)
	assert.LessOrEqual(t, roll, room.DiceSides)

	payload, err := DecodeDiceRoll(event)
	require.NoError(t, err)
	assert.Equal(t, roll, payload.Roll)
	assert.Equal(t, room.DiceSides, payload.Sides)

	_, err = svc.ledger.PaySalary(ctx, operator.UserID, room.ID, player.ID)
	require.NoError(t, err)

	feed, err := svc.activity.Feed(ctx, room.ID, 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	kinds := map[string]int{}
	for _, item := range feed {
		kinds[item.Kind]++
	}
	assert.Equal(t, 1, kinds[FeedKindTransaction])
	assert.Equal(t, 1, kinds[FeedKindGameEvent])
}

func TestMoneyOpsRequireInProgress(t *testing.T) {
	svc, cleanup := setupServices(t)
	defer cleanup()
	ctx := context.Background()

	operatorUser := uuid.New()
	room, operator, err := svc.registry.CreateRoom(ctx, operatorUser, CreateRoomParams{
		RoomName: "Friday Night", CreatorNickname: "alice", CreatorColor: "red",
	})
	require.NoError(t, err)

	_, err = svc.ledger.CreateTransaction(ctx, operatorUser, CreateTransactionParams{
		RoomID:     room.ID,
		Type:       model.TxTypeBankToPlayer,
		Amount:     100,
		ToPlayerID: &operator.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, _, err = svc.dice.RollDice(ctx, operatorUser, room.ID, 6)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
