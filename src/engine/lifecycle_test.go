package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundedsim/engine/src/database"
	"github.com/fundedsim/engine/src/eventpubsub"
	"github.com/fundedsim/engine/src/marketdata"
	"github.com/fundedsim/engine/src/models"
)

type testHarness struct {
	store     *database.MemoryStore
	feed      *marketdata.PriceFeed
	lifecycle *Lifecycle
	monitor   *Monitor
}

// newTestHarness wires the engine against the in-memory store with
// deterministic pricing: no slippage, ES pinned to 5150.
func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	store := database.NewMemoryStore()
	feed := marketdata.NewPriceFeed([]models.Instrument{testInstrument}, time.Minute, 1)
	require.NoError(t, feed.SetPrice("ES", 5150.0))

	lifecycle := NewLifecycle(
		store,
		feed,
		NewValidator(10),
		NewSimulator(0, 0, 1),
		NewEvaluator(),
		eventpubsub.NopPublisher{},
		map[string]models.Tier{testTier.Name: testTier},
	)

	return &testHarness{
		store:     store,
		feed:      feed,
		lifecycle: lifecycle,
		monitor:   NewMonitor(store, feed, lifecycle),
	}
}

func (h *testHarness) newAccount(t *testing.T) *models.Account {
	t.Helper()

	account := models.NewAccount(testTier)
	require.NoError(t, h.store.CreateAccount(account))

	return account
}

func marketBuy(accountID uuid.UUID, quantity float64) OrderRequest {
	return OrderRequest{
		AccountID: accountID,
		Symbol:    "ES",
		Side:      models.OrderSideBuy,
		Type:      models.Market,
		Quantity:  quantity,
	}
}

func TestSubmitOrderMarketFill(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	order, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 2))
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusFilled, order.Status)
	assert.Equal(t, 2.0, order.FilledQuantity)
	assert.Equal(t, 5150.0, order.AvgFillPrice)

	t.Run("balance drops by commission and fees only", func(t *testing.T) {
		stored, err := h.store.GetAccount(account.ID)
		require.NoError(t, err)

		costs := 2 * (2.25 + 1.40)
		assert.InDelta(t, 50000-costs, stored.Balance, 1e-9)
		assert.InDelta(t, -costs, stored.DailyPnL, 1e-9)
		assert.True(t, stored.TradedToday)
		assert.Equal(t, 1, stored.OpenPositionCount)
		assert.Equal(t, 0, stored.OpenOrderCount)
	})

	t.Run("position and execution are persisted", func(t *testing.T) {
		position, err := h.store.GetOpenPosition(account.ID, "ES")
		require.NoError(t, err)
		assert.Equal(t, 2.0, position.Quantity)
		assert.Equal(t, 5150.0, position.AvgEntryPrice)

		executions, err := h.store.ListExecutions(account.ID)
		require.NoError(t, err)
		require.Len(t, executions, 1)
		assert.Equal(t, order.ID, executions[0].OrderID)
		assert.Equal(t, 2.0, executions[0].Quantity)
	})

	t.Run("closing trade realizes into the balance", func(t *testing.T) {
		require.NoError(t, h.feed.SetPrice("ES", 5154.0))

		closeOrder, err := h.lifecycle.SubmitOrder(OrderRequest{
			AccountID: account.ID,
			Symbol:    "ES",
			Side:      models.OrderSideSell,
			Type:      models.Market,
			Quantity:  2,
		})
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusFilled, closeOrder.Status)

		stored, err := h.store.GetAccount(account.ID)
		require.NoError(t, err)

		// 2 contracts, 4 points at 50/point, minus both round trips' costs.
		expected := 50000.0 + 2*4*50.0 - 2*2*(2.25+1.40)
		assert.InDelta(t, expected, stored.Balance, 1e-9)
		assert.Equal(t, 0, stored.OpenPositionCount)

		_, err = h.store.GetOpenPosition(account.ID, "ES")
		assert.ErrorIs(t, err, models.ErrPositionNotFound)
	})
}

func TestSubmitOrderRejection(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	// Over the per-trade quantity limit.
	order, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 6))
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusRejected, order.Status)
	require.NotNil(t, order.RejectReason)
	assert.Contains(t, *order.RejectReason, "per-trade limit")

	t.Run("rejected order and its audit record are persisted", func(t *testing.T) {
		stored, err := h.store.GetOrder(order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusRejected, stored.Status)

		records := h.store.RuleChecks(order.ID)
		require.Len(t, records, 1)
		assert.False(t, records[0].Passed)
		assert.Len(t, records[0].Results, 5)
	})

	t.Run("balance is untouched", func(t *testing.T) {
		stored, err := h.store.GetAccount(account.ID)
		require.NoError(t, err)
		assert.Equal(t, 50000.0, stored.Balance)
	})

	t.Run("audit record is written for accepted orders too", func(t *testing.T) {
		accepted, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 1))
		require.NoError(t, err)

		records := h.store.RuleChecks(accepted.ID)
		require.Len(t, records, 1)
		assert.True(t, records[0].Passed)
	})
}

func TestSubmitOrderValidation(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 0))
		assert.ErrorIs(t, err, models.ErrInvalidOrderQuantity)
	})

	t.Run("limit order without a limit price", func(t *testing.T) {
		req := marketBuy(account.ID, 1)
		req.Type = models.Limit

		_, err := h.lifecycle.SubmitOrder(req)
		assert.ErrorContains(t, err, "limit price")
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := h.lifecycle.SubmitOrder(marketBuy(uuid.New(), 1))
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})

	t.Run("failed account cannot trade", func(t *testing.T) {
		failed := models.NewAccount(testTier)
		failed.Status = models.AccountStatusFailed
		require.NoError(t, h.store.CreateAccount(failed))

		_, err := h.lifecycle.SubmitOrder(marketBuy(failed.ID, 1))
		assert.ErrorIs(t, err, models.ErrTradingNotAllowed)
	})
}

func TestSubmitOrderRestingLimit(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	order, err := h.lifecycle.SubmitOrder(OrderRequest{
		AccountID:  account.ID,
		Symbol:     "ES",
		Side:       models.OrderSideBuy,
		Type:       models.Limit,
		Quantity:   1,
		LimitPrice: ptr(5140.0),
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusWorking, order.Status)

	stored, err := h.store.GetAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.OpenOrderCount)

	t.Run("marketable limit fills on submission at the better price", func(t *testing.T) {
		marketable, err := h.lifecycle.SubmitOrder(OrderRequest{
			AccountID:  account.ID,
			Symbol:     "ES",
			Side:       models.OrderSideBuy,
			Type:       models.Limit,
			Quantity:   1,
			LimitPrice: ptr(5155.0),
		})
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusFilled, marketable.Status)
		assert.Equal(t, 5150.0, marketable.AvgFillPrice)
	})
}

func TestCancelOrder(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	order, err := h.lifecycle.SubmitOrder(OrderRequest{
		AccountID:  account.ID,
		Symbol:     "ES",
		Side:       models.OrderSideBuy,
		Type:       models.Limit,
		Quantity:   1,
		LimitPrice: ptr(5140.0),
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusWorking, order.Status)

	t.Run("working order cancels and releases the counter", func(t *testing.T) {
		cancelled, err := h.lifecycle.CancelOrder(order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

		stored, err := h.store.GetAccount(account.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.OpenOrderCount)
	})

	t.Run("cancelling a terminal order is a silent no-op", func(t *testing.T) {
		again, err := h.lifecycle.CancelOrder(order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, again.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := h.lifecycle.CancelOrder(uuid.New())
		assert.ErrorIs(t, err, models.ErrOrderNotFound)
	})

	t.Run("cancelled order is never filled by a sweep", func(t *testing.T) {
		require.NoError(t, h.feed.SetPrice("ES", 5138.0))

		result, err := h.monitor.RunSweep()
		require.NoError(t, err)
		assert.Equal(t, 0, result.Checked)
		assert.Equal(t, 0, result.Filled)

		stored, err := h.store.GetOrder(order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	})
}

func TestOpenOrderCountSurvivesSubmissionFill(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	// Park a limit order far below the market so it stays resting.
	parked, err := h.lifecycle.SubmitOrder(OrderRequest{
		AccountID:  account.ID,
		Symbol:     "ES",
		Side:       models.OrderSideBuy,
		Type:       models.Limit,
		Quantity:   1,
		LimitPrice: ptr(5000.0),
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusWorking, parked.Status)

	stored, err := h.store.GetAccount(account.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.OpenOrderCount)

	// A market order that fills on the submission path must not consume the
	// parked order's slot in the counter.
	filled, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 1))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusFilled, filled.Status)

	stored, err = h.store.GetAccount(account.ID)
	require.NoError(t, err)

	count, err := h.store.CountRestingOrders(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, count, stored.OpenOrderCount)

	t.Run("monitor fill releases exactly the filled order's slot", func(t *testing.T) {
		require.NoError(t, h.feed.SetPrice("ES", 5000.0))

		result, err := h.monitor.RunSweep()
		require.NoError(t, err)
		require.Equal(t, 1, result.Filled)

		stored, err := h.store.GetAccount(account.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.OpenOrderCount)
	})
}

func TestSubmitOrderParksWithoutPrice(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	// No contract specification and no price for the symbol: the order
	// parks as working and the open-order counter reflects it immediately.
	order, err := h.lifecycle.SubmitOrder(OrderRequest{
		AccountID: account.ID,
		Symbol:    "ZZ",
		Side:      models.OrderSideBuy,
		Type:      models.Market,
		Quantity:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusWorking, order.Status)

	stored, err := h.store.GetAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.OpenOrderCount)
}

func TestDailyLossLimitBlocksNextOrder(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	// Buy 5 at 5150, sell them at 5144: a 1,500 loss plus costs, past the
	// 1,250 daily limit.
	opening, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 5))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusFilled, opening.Status)

	require.NoError(t, h.feed.SetPrice("ES", 5144.0))

	closing, err := h.lifecycle.SubmitOrder(OrderRequest{
		AccountID: account.ID,
		Symbol:    "ES",
		Side:      models.OrderSideSell,
		Type:      models.Market,
		Quantity:  5,
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusFilled, closing.Status)

	stored, err := h.store.GetAccount(account.ID)
	require.NoError(t, err)
	assert.True(t, stored.DailyLossLimitHit)
	assert.Equal(t, models.AccountStatusActive, stored.Status)

	t.Run("next order is rejected with the daily-loss reason", func(t *testing.T) {
		rejected, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 1))
		require.NoError(t, err)

		assert.Equal(t, models.OrderStatusRejected, rejected.Status)
		require.NotNil(t, rejected.RejectReason)
		assert.Contains(t, *rejected.RejectReason, "daily loss limit already hit")
	})

	t.Run("the flag clears on the daily roll", func(t *testing.T) {
		_, err := h.lifecycle.RollDay(account.ID)
		require.NoError(t, err)

		accepted, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 1))
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusFilled, accepted.Status)
	})
}

func TestRollDayPersistsAccount(t *testing.T) {
	h := newTestHarness(t)
	account := h.newAccount(t)

	_, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 1))
	require.NoError(t, err)

	rolled, err := h.lifecycle.RollDay(account.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, rolled.TradingDays)
	assert.False(t, rolled.TradedToday)
	assert.Equal(t, 0.0, rolled.DailyPnL)

	stored, err := h.store.GetAccount(account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TradingDays)
}

func TestFillFailsAccountOnDrawdown(t *testing.T) {
	h := newTestHarness(t)

	account := models.NewAccount(testTier)
	account.Balance = 47503 // 3 above the threshold
	account.HighWaterMark = account.Balance
	require.NoError(t, h.store.CreateAccount(account))

	// Costs alone push the balance through the threshold.
	order, err := h.lifecycle.SubmitOrder(marketBuy(account.ID, 1))
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusFilled, order.Status)

	stored, err := h.store.GetAccount(account.ID)
	require.NoError(t, err)

	assert.Equal(t, models.AccountStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "max drawdown exceeded", *stored.FailureReason)

	_, err = h.lifecycle.SubmitOrder(marketBuy(account.ID, 1))
	assert.ErrorIs(t, err, models.ErrTradingNotAllowed)
}
