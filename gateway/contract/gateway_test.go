package contract

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-marketplace-onchain/logger"
	"realestate-marketplace-onchain/model"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// fakeBackend answers eth_call with packed contract outputs. Methods it does
// not override panic through the nil embedded Backend.
type fakeBackend struct {
	Backend

	abi       abi.ABI
	records   []propertyRecord
	requested []uint64
	callErr   error

	tx        *types.Transaction
	pending   bool
	receipt   *types.Receipt
	lookupErr error
}

func newFakeBackend(t *testing.T, records ...propertyRecord) *fakeBackend {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(RealEstateMarketplaceABI))
	require.NoError(t, err)
	return &fakeBackend{abi: parsed, records: records}
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}

	totalMethod := f.abi.Methods[methodGetTotalProperties]
	detailsMethod := f.abi.Methods[methodGetPropertyDetails]

	switch {
	case bytes.Equal(msg.Data[:4], totalMethod.ID):
		return totalMethod.Outputs.Pack(big.NewInt(int64(len(f.records))))
	case bytes.Equal(msg.Data[:4], detailsMethod.ID):
		args, err := detailsMethod.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		id := args[0].(*big.Int).Uint64()
		f.requested = append(f.requested, id)
		if id == 0 || id > uint64(len(f.records)) {
			return nil, errors.New("execution reverted: property does not exist")
		}
		return detailsMethod.Outputs.Pack(f.records[id-1])
	}
	return nil, errors.New("unexpected call")
}

func (f *fakeBackend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if f.lookupErr != nil {
		return nil, false, f.lookupErr
	}
	return f.tx, f.pending, nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return f.receipt, nil
}

func record(id int64, title string, priceWei int64, owner string, forSale bool) propertyRecord {
	return propertyRecord{
		Id:       big.NewInt(id),
		Title:    title,
		Location: title + " street",
		Price:    big.NewInt(priceWei),
		Owner:    common.HexToAddress(owner),
		ForSale:  forSale,
	}
}

func newTestGateway(t *testing.T, backend *fakeBackend) *RealEstateGateway {
	t.Helper()
	gw, err := NewRealEstateGateway(backend, testContract, logger.Nop())
	require.NoError(t, err)
	return gw
}

func TestNewRealEstateGateway_InvalidAddress(t *testing.T) {
	_, err := NewRealEstateGateway(newFakeBackend(t), "nope", logger.Nop())
	assert.Error(t, err)
}

func TestNewRealEstateGatewayWithABI_MissingMethods(t *testing.T) {
	partial, err := abi.JSON(strings.NewReader(`[{"inputs":[],"name":"getTotalProperties","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`))
	require.NoError(t, err)

	_, err = NewRealEstateGatewayWithABI(newFakeBackend(t), testContract, partial, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buyProperty")
	assert.Contains(t, err.Error(), "getPropertyDetails")
}

func TestGetTotalProperties(t *testing.T) {
	backend := newFakeBackend(t,
		record(1, "A", 1e18, "0x01", false),
		record(2, "B", 2e18, "0x02", true),
	)
	gw := newTestGateway(t, backend)

	count, err := gw.GetTotalProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestGetPropertyDetails(t *testing.T) {
	owner := "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	backend := newFakeBackend(t,
		record(1, "Loft", 1e18, "0x01", false),
		record(2, "Villa", 25e17, owner, true),
	)
	gw := newTestGateway(t, backend)

	p, err := gw.GetPropertyDetails(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), p.ID)
	assert.Equal(t, "Villa", p.Title)
	assert.Equal(t, "Villa street", p.Location)
	assert.Equal(t, "2500000000000000000", p.Price.String())
	assert.Equal(t, owner, p.Owner)
	assert.True(t, p.ForSale)
	assert.Equal(t, []uint64{2}, backend.requested)
}

func TestGetPropertyDetails_Reverted(t *testing.T) {
	gw := newTestGateway(t, newFakeBackend(t))

	_, err := gw.GetPropertyDetails(context.Background(), 9)
	assert.Error(t, err)
}

func TestGetTotalProperties_NodeError(t *testing.T) {
	backend := newFakeBackend(t)
	backend.callErr = errors.New("connection refused")
	gw := newTestGateway(t, backend)

	_, err := gw.GetTotalProperties(context.Background())
	assert.EqualError(t, err, "connection refused")
}

func TestVerifyTransaction(t *testing.T) {
	contractAddr := common.HexToAddress(testContract)
	hash := "0x" + strings.Repeat("ab", 32)

	t.Run("invalid hash", func(t *testing.T) {
		gw := newTestGateway(t, newFakeBackend(t))
		_, err := gw.VerifyTransaction(context.Background(), "0x0")
		assert.ErrorIs(t, err, model.ErrInvalidHash)
	})

	t.Run("not found", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.lookupErr = ethereum.NotFound
		gw := newTestGateway(t, backend)

		_, err := gw.VerifyTransaction(context.Background(), hash)
		assert.ErrorIs(t, err, model.ErrReadFailed)
	})

	t.Run("pending", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.tx = types.NewTx(&types.LegacyTx{To: &contractAddr})
		backend.pending = true
		gw := newTestGateway(t, backend)

		v, err := gw.VerifyTransaction(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, "pending", v.Status)
		assert.False(t, v.Success)
	})

	t.Run("successful contract call", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.tx = types.NewTx(&types.LegacyTx{To: &contractAddr, Gas: 100000, GasPrice: big.NewInt(1)})
		backend.receipt = &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			BlockNumber: big.NewInt(42),
			GasUsed:     51234,
		}
		gw := newTestGateway(t, backend)

		v, err := gw.VerifyTransaction(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, "success", v.Status)
		assert.True(t, v.Success)
		assert.True(t, v.IsContractCall)
		assert.Equal(t, uint64(42), v.BlockNumber)
		assert.Equal(t, uint64(51234), v.GasUsed)
	})

	t.Run("reverted transfer elsewhere", func(t *testing.T) {
		other := common.HexToAddress("0x03")
		backend := newFakeBackend(t)
		backend.tx = types.NewTx(&types.LegacyTx{To: &other})
		backend.receipt = &types.Receipt{
			Status:      types.ReceiptStatusFailed,
			BlockNumber: big.NewInt(7),
		}
		gw := newTestGateway(t, backend)

		v, err := gw.VerifyTransaction(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, "failed", v.Status)
		assert.False(t, v.IsContractCall)
	})
}
