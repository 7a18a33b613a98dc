package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"realestate-marketplace-onchain/logger"
	"realestate-marketplace-onchain/model"
)

// Backend はゲートウェイが必要とするノード機能 (*ethclient.Client が満たす)
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// MarketplaceGateway はRealEstateMarketplaceコントラクトとの連携を担当
type MarketplaceGateway interface {
	// Address はコントラクトアドレスを返す
	Address() common.Address

	// ChainID は接続先チェーンのIDを返す
	ChainID(ctx context.Context) (*big.Int, error)

	// MintProperty / ListPropertyForSale / BuyProperty は送信済み (未確定) のトランザクションを返す
	MintProperty(opts *bind.TransactOpts, title, location string, price *big.Int) (*types.Transaction, error)
	ListPropertyForSale(opts *bind.TransactOpts, propertyID uint64, price *big.Int) (*types.Transaction, error)
	BuyProperty(opts *bind.TransactOpts, propertyID uint64) (*types.Transaction, error)

	// WaitMined はトランザクションがブロックに取り込まれるまで待つ
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	GetTotalProperties(ctx context.Context) (uint64, error)
	GetPropertyDetails(ctx context.Context, propertyID uint64) (*model.Property, error)

	// VerifyTransaction はトランザクションを検証
	VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error)
}

// RealEstateGateway はMarketplaceGatewayの実装
type RealEstateGateway struct {
	backend         Backend
	contractAddress common.Address
	contractABI     abi.ABI
	bound           *bind.BoundContract
	log             *logger.Logger
}

// propertyRecord はgetPropertyDetailsのタプルに対応する
type propertyRecord struct {
	Id       *big.Int
	Title    string
	Location string
	Price    *big.Int
	Owner    common.Address
	ForSale  bool
}

// NewRealEstateGateway は組み込みABIでゲートウェイを作成
func NewRealEstateGateway(backend Backend, contractAddr string, log *logger.Logger) (*RealEstateGateway, error) {
	parsedABI, err := abi.JSON(strings.NewReader(RealEstateMarketplaceABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return NewRealEstateGatewayWithABI(backend, contractAddr, parsedABI, log)
}

// NewRealEstateGatewayWithABI は任意のABI (Hardhatアーティファクト等) でゲートウェイを作成
func NewRealEstateGatewayWithABI(backend Backend, contractAddr string, parsedABI abi.ABI, log *logger.Logger) (*RealEstateGateway, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddr)
	}
	if err := verifyMethods(parsedABI); err != nil {
		return nil, err
	}

	contractAddress := common.HexToAddress(contractAddr)
	if contractAddress == (common.Address{}) {
		log.Warn("Contract address appears to be zero address", nil)
	}
	log.Info("Contract gateway initialized", map[string]interface{}{
		"contract": contractAddress.Hex(),
	})

	return &RealEstateGateway{
		backend:         backend,
		contractAddress: contractAddress,
		contractABI:     parsedABI,
		bound:           bind.NewBoundContract(contractAddress, parsedABI, backend, backend, backend),
		log:             log,
	}, nil
}

// verifyMethods はABIに必要なメソッドが揃っているか確認
func verifyMethods(parsedABI abi.ABI) error {
	var missing []string
	for _, name := range requiredMethods {
		if _, ok := parsedABI.Methods[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("ABI is missing methods: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (g *RealEstateGateway) Address() common.Address {
	return g.contractAddress
}

func (g *RealEstateGateway) ChainID(ctx context.Context) (*big.Int, error) {
	return g.backend.ChainID(ctx)
}

func (g *RealEstateGateway) MintProperty(opts *bind.TransactOpts, title, location string, price *big.Int) (*types.Transaction, error) {
	return g.bound.Transact(opts, methodMintProperty, title, location, price)
}

func (g *RealEstateGateway) ListPropertyForSale(opts *bind.TransactOpts, propertyID uint64, price *big.Int) (*types.Transaction, error) {
	return g.bound.Transact(opts, methodListPropertyForSale, new(big.Int).SetUint64(propertyID), price)
}

// BuyProperty は支払額を opts.Value で受け取る
func (g *RealEstateGateway) BuyProperty(opts *bind.TransactOpts, propertyID uint64) (*types.Transaction, error) {
	return g.bound.Transact(opts, methodBuyProperty, new(big.Int).SetUint64(propertyID))
}

func (g *RealEstateGateway) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, g.backend, tx)
}

// call はviewメソッドを呼び出して結果をデコード
func (g *RealEstateGateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		To:   &g.contractAddress,
		Data: data,
	}

	result, err := g.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, err
	}

	return g.contractABI.Unpack(method, result)
}

// GetTotalProperties はミント済み物件数を取得
func (g *RealEstateGateway) GetTotalProperties(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, methodGetTotalProperties)
	if err != nil {
		return 0, err
	}

	count, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected %s output type %T", methodGetTotalProperties, out[0])
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("property count %s overflows uint64", count)
	}
	return count.Uint64(), nil
}

// GetPropertyDetails はコントラクトから物件情報を取得
func (g *RealEstateGateway) GetPropertyDetails(ctx context.Context, propertyID uint64) (*model.Property, error) {
	out, err := g.call(ctx, methodGetPropertyDetails, new(big.Int).SetUint64(propertyID))
	if err != nil {
		return nil, err
	}

	record, ok := abi.ConvertType(out[0], new(propertyRecord)).(*propertyRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", methodGetPropertyDetails, out[0])
	}

	return &model.Property{
		ID:       record.Id.Uint64(),
		Title:    record.Title,
		Location: record.Location,
		Price:    record.Price,
		Owner:    record.Owner.Hex(),
		ForSale:  record.ForSale,
	}, nil
}

// VerifyTransaction はトランザクションを検証
func (g *RealEstateGateway) VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error) {
	txHashObj := common.HexToHash(txHash)
	if txHashObj == (common.Hash{}) {
		return nil, model.ErrInvalidHash
	}

	tx, isPending, err := g.backend.TransactionByHash(ctx, txHashObj)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction not found: %v", model.ErrReadFailed, err)
	}

	if isPending {
		return &model.TxVerification{
			TxHash:  txHashObj.Hex(),
			Status:  "pending",
			Success: false,
		}, nil
	}

	receipt, err := g.backend.TransactionReceipt(ctx, txHashObj)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get transaction receipt: %v", model.ErrReadFailed, err)
	}

	verification := &model.TxVerification{
		TxHash:      txHashObj.Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
	}

	if verification.Success {
		verification.Status = "success"
	} else {
		verification.Status = "failed"
	}

	// コントラクト呼び出しかどうかを確認
	if tx.To() != nil && *tx.To() == g.contractAddress {
		verification.IsContractCall = true
	}

	return verification, nil
}
