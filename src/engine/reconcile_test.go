package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundedsim/engine/src/database"
	"github.com/fundedsim/engine/src/models"
)

func newReconcilerHarness(t *testing.T) (*database.MemoryStore, *Reconciler) {
	t.Helper()

	store := database.NewMemoryStore()
	reconciler := NewReconciler(
		store,
		map[string]models.Instrument{testInstrument.Symbol: testInstrument},
		map[string]models.Tier{testTier.Name: testTier},
	)

	return store, reconciler
}

// seedInterruptedFill stores an account, an order and its execution as a
// crash between the execution write and the rest of the fill unit would
// have left them: order quantities, position and balance all missing.
func seedInterruptedFill(t *testing.T, store *database.MemoryStore, account *models.Account, quantity, price float64) *models.Order {
	t.Helper()

	now := time.Now().UTC()
	side := models.OrderSideBuy
	if quantity < 0 {
		side = models.OrderSideSell
	}

	absQty := quantity
	if absQty < 0 {
		absQty = -absQty
	}

	order := models.NewOrder(account.ID, testInstrument.Symbol, side, models.Market, absQty, nil, nil, nil, now)
	order.Status = models.OrderStatusSubmitted
	require.NoError(t, store.CreateOrder(order))

	commission := absQty * testInstrument.CommissionPerContract
	fees := absQty * testInstrument.FeePerContract
	execution := models.NewExecution(order, quantity, price, 0, commission, fees, now)

	// ApplyExecution marks the order filled so CommitFill accepts it, then
	// the stored order is reverted to simulate the torn write.
	applied := *order
	require.NoError(t, applied.ApplyExecution(execution))

	position := models.NewPosition(account.ID, order.Symbol, now)
	require.NoError(t, store.CommitFill(&applied, execution, position, account))

	require.NoError(t, store.SaveOrder(order))

	return order
}

func TestReconcilerRebuildsFromExecutions(t *testing.T) {
	store, reconciler := newReconcilerHarness(t)

	account := models.NewAccount(testTier)
	require.NoError(t, store.CreateAccount(account))

	order := seedInterruptedFill(t, store, account, 2, 5154.0)

	require.NoError(t, reconciler.Run())

	t.Run("order quantities are re-derived", func(t *testing.T) {
		stored, err := store.GetOrder(order.ID)
		require.NoError(t, err)

		assert.Equal(t, 2.0, stored.FilledQuantity)
		assert.Equal(t, 5154.0, stored.AvgFillPrice)
		assert.Equal(t, models.OrderStatusFilled, stored.Status)
	})

	t.Run("position is rebuilt", func(t *testing.T) {
		position, err := store.GetOpenPosition(account.ID, "ES")
		require.NoError(t, err)

		assert.Equal(t, 2.0, position.Quantity)
		assert.Equal(t, 5154.0, position.AvgEntryPrice)
	})

	t.Run("balance is replayed from the log", func(t *testing.T) {
		stored, err := store.GetAccount(account.ID)
		require.NoError(t, err)

		costs := 2 * (2.25 + 1.40)
		assert.InDelta(t, 50000-costs, stored.Balance, 1e-6)
	})
}

func TestReconcilerOverwritesDriftedPosition(t *testing.T) {
	store, reconciler := newReconcilerHarness(t)

	account := models.NewAccount(testTier)
	require.NoError(t, store.CreateAccount(account))

	seedInterruptedFill(t, store, account, 3, 5150.0)

	// Corrupt the stored position.
	drifted, err := store.GetOpenPosition(account.ID, "ES")
	require.NoError(t, err)
	drifted.Quantity = 7
	drifted.AvgEntryPrice = 1
	require.NoError(t, store.SavePosition(drifted))

	require.NoError(t, reconciler.Run())

	repaired, err := store.GetOpenPosition(account.ID, "ES")
	require.NoError(t, err)

	assert.Equal(t, drifted.ID, repaired.ID)
	assert.Equal(t, 3.0, repaired.Quantity)
	assert.Equal(t, 5150.0, repaired.AvgEntryPrice)
}

func TestReconcilerReEvaluatesReplayedBalance(t *testing.T) {
	store, reconciler := newReconcilerHarness(t)

	account := models.NewAccount(testTier)
	require.NoError(t, store.CreateAccount(account))

	// A large realized loss that never reached the account record: sell 2 at
	// 5150, buy back at 5176 for a 2600 loss plus costs.
	seedInterruptedFill(t, store, account, -2, 5150.0)
	seedInterruptedFill(t, store, account, 2, 5176.0)

	require.NoError(t, reconciler.Run())

	stored, err := store.GetAccount(account.ID)
	require.NoError(t, err)

	assert.Less(t, stored.Balance, stored.DrawdownThreshold+1)
	assert.Equal(t, models.AccountStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "max drawdown exceeded", *stored.FailureReason)
}

func TestReconcilerCleanStateIsUntouched(t *testing.T) {
	store, reconciler := newReconcilerHarness(t)

	account := models.NewAccount(testTier)
	require.NoError(t, store.CreateAccount(account))

	require.NoError(t, reconciler.Run())

	stored, err := store.GetAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, stored.Balance)
	assert.Equal(t, models.AccountStatusActive, stored.Status)
}
