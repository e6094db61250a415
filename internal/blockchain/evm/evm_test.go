// internal/blockchain/evm/evm_test.go
package evm

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/monad-bot/internal/executor"
	"github.com/rovshanmuradov/monad-bot/internal/types"
)

var (
	_ executor.CurveClient  = (*Client)(nil)
	_ executor.RouterClient = (*Client)(nil)
)

func init() {
	receiptInitialInterval = time.Millisecond
	receiptMaxInterval = 5 * time.Millisecond
}

type fakeHeaders struct{ baseFee *big.Int }

func (f fakeHeaders) HeaderByNumber(context.Context, *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{BaseFee: f.baseFee}, nil
}

type fakeReceipts struct {
	misses  int
	calls   int
	receipt *gethtypes.Receipt
}

func (f *fakeReceipts) TransactionReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	f.calls++
	if f.calls <= f.misses {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

type fakeNonces struct {
	next  uint64
	calls int
}

func (f *fakeNonces) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.calls++
	return f.next, nil
}

func TestSuggestFeesUsesStrategy(t *testing.T) {
	baseFee := big.NewInt(50 * params.GWei)

	maxFee, tip, err := suggestFees(context.Background(), fakeHeaders{baseFee: baseFee}, types.GasAggressive)
	require.NoError(t, err)

	wantMax, wantTip := types.GasAggressive.Calculate(baseFee)
	assert.Equal(t, 0, wantMax.Cmp(maxFee))
	assert.Equal(t, 0, wantTip.Cmp(tip))
}

func TestSuggestFeesWithoutBaseFee(t *testing.T) {
	maxFee, tip, err := suggestFees(context.Background(), fakeHeaders{}, types.GasNormal)
	require.NoError(t, err)
	assert.Equal(t, 0, maxFee.Cmp(tip), "without a base fee the cap equals the tip")
}

func TestWaitReceiptRetriesUntilMined(t *testing.T) {
	src := &fakeReceipts{misses: 3, receipt: &gethtypes.Receipt{Status: gethtypes.ReceiptStatusSuccessful}}

	r, err := waitReceipt(context.Background(), src, common.HexToHash("0x1"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, gethtypes.ReceiptStatusSuccessful, r.Status)
	assert.Equal(t, 4, src.calls)
}

func TestWaitReceiptTimesOut(t *testing.T) {
	src := &fakeReceipts{misses: 1 << 30}

	_, err := waitReceipt(context.Background(), src, common.HexToHash("0x1"), 30*time.Millisecond)
	assert.Error(t, err)
}

func TestNonceTracking(t *testing.T) {
	c := &Client{}
	src := &fakeNonces{next: 7}

	n, err := c.nextNonce(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	*c.nonce = n + 1
	n, err = c.nextNonce(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), n)
	assert.Equal(t, 1, src.calls, "node is only asked once while the local counter is valid")
}

func TestParseKey(t *testing.T) {
	_, err := parseKey("")
	assert.Error(t, err)

	_, err = parseKey("0xzz")
	assert.Error(t, err)

	key, err := parseKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	assert.NotNil(t, key)
}

func TestCurveSellTuplePacks(t *testing.T) {
	data, err := curveRouterABI.Pack("sell", curveSellParams{
		AmountIn:     big.NewInt(1000),
		AmountOutMin: big.NewInt(850),
		Token:        common.HexToAddress("0x01"),
		To:           common.HexToAddress("0x02"),
		Deadline:     big.NewInt(1_700_000_000),
	})
	require.NoError(t, err)
	// selector + 5 static words
	assert.Len(t, data, 4+5*32)

	_, err = curveRouterABI.Pack("buy", curveBuyParams{
		AmountOutMin: big.NewInt(1),
		Token:        common.HexToAddress("0x01"),
		To:           common.HexToAddress("0x02"),
		Deadline:     big.NewInt(1),
	})
	require.NoError(t, err)
}

func TestCurveEventsDecode(t *testing.T) {
	ev, ok := CurveEventsABI.Events["CurveBuy"]
	require.True(t, ok)

	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(5), big.NewInt(9))
	require.NoError(t, err)

	values, err := CurveEventsABI.Unpack("CurveBuy", data)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, int64(5), values[0].(*big.Int).Int64())
}
