package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	now := time.Now()

	tx, err := NewTransaction("alice", " aapl ", decimal.NewFromInt(10), decimal.NewFromInt(50), now)
	require.NoError(t, err)
	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "AAPL", tx.Symbol)
	assert.True(t, tx.IsBuy())
	assert.True(t, tx.Cost().Equal(decimal.NewFromInt(500)))

	sell, err := NewTransaction("alice", "AAPL", decimal.NewFromInt(-10), decimal.NewFromInt(60), now)
	require.NoError(t, err)
	assert.False(t, sell.IsBuy())
	assert.True(t, sell.Cost().Equal(decimal.NewFromInt(600)), "cost is absolute")
}

func TestNewTransaction_Invalid(t *testing.T) {
	now := time.Now()

	_, err := NewTransaction("", "AAPL", decimal.NewFromInt(1), decimal.NewFromInt(1), now)
	assert.Error(t, err)

	_, err = NewTransaction("alice", "  ", decimal.NewFromInt(1), decimal.NewFromInt(1), now)
	assert.Error(t, err)

	_, err = NewTransaction("alice", "AAPL", decimal.Zero, decimal.NewFromInt(1), now)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewTransaction("alice", "AAPL", decimal.NewFromInt(1), decimal.Zero, now)
	assert.Error(t, err)
}

func TestPosition(t *testing.T) {
	p := Position{Symbol: "AAPL", Shares: decimal.NewFromFloat(2.5)}
	assert.True(t, p.IsOpen())
	assert.True(t, p.MarketValue(decimal.NewFromInt(100)).Equal(decimal.NewFromInt(250)))

	closed := Position{Symbol: "AAPL", Shares: decimal.Zero}
	assert.False(t, closed.IsOpen())
}
