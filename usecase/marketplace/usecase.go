package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"realestate-marketplace-onchain/gateway/contract"
	"realestate-marketplace-onchain/gateway/wallet"
	"realestate-marketplace-onchain/logger"
	"realestate-marketplace-onchain/model"
)

// アクション名
const (
	ActionMint = "mint"
	ActionList = "list"
	ActionBuy  = "buy"
)

// MarketplaceUsecase はマーケットプレイスの画面操作とトランザクション送信を扱う
type MarketplaceUsecase interface {
	// Connect はウォレットを接続し、署名付きのコントラクトクライアントを準備する
	Connect(ctx context.Context) error

	// Info はコントラクトと接続状態を返す
	Info() model.ContractInfo

	// View はビュー状態のコピーを返す
	View() model.ViewState

	// SelectTab はタブを切り替え、必要な一覧を再取得する
	SelectTab(ctx context.Context, tab model.Tab) (model.ViewState, error)

	MintProperty(ctx context.Context, title, location, price string) (*model.TxResult, error)
	ListPropertyForSale(ctx context.Context, propertyID uint64, price string) (*model.TxResult, error)
	BuyProperty(ctx context.Context, propertyID uint64) (*model.TxResult, error)

	// FetchProperties / FetchOwnedProperties は未接続なら何もしない
	FetchProperties(ctx context.Context) ([]model.Property, error)
	FetchOwnedProperties(ctx context.Context) ([]model.Property, error)

	// VerifyTransaction はトランザクションを検証
	VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error)
}

// MaxPropertyCount はgetTotalPropertiesとして受け付ける上限
const MaxPropertyCount = 1 << 16

// Options はSessionの動作設定
type Options struct {
	ChainID         *big.Int // nilならノードに問い合わせる
	ReadConcurrency int
	TxTimeout       time.Duration // 0なら無制限に待つ
}

// Session はアプリケーション状態 (アカウント、署名者、タブ、取得済み一覧) を保持する
type Session struct {
	gateway  contract.MarketplaceGateway
	provider wallet.Provider
	opts     Options
	log      *logger.Logger
	guard    *actionGuard

	// connectMu はConnectを直列化する。I/O中もsの読み取りは妨げない
	connectMu sync.Mutex

	mu         sync.RWMutex
	connected  bool
	account    common.Address
	chainID    *big.Int
	signer     *bind.TransactOpts
	tab        model.Tab
	properties []model.Property
	owned      []model.Property

	// 一覧読み取りの世代。古い読み取り結果で新しい一覧を上書きしない
	propertiesSeq, propertiesGen uint64
	ownedSeq, ownedGen           uint64
}

// NewSession はSessionを作成する。providerがnilの場合、Connectは model.ErrNoProvider を返す
func NewSession(gw contract.MarketplaceGateway, provider wallet.Provider, opts Options, log *logger.Logger) *Session {
	if opts.ReadConcurrency < 1 {
		opts.ReadConcurrency = 1
	}
	return &Session{
		gateway:    gw,
		provider:   provider,
		opts:       opts,
		log:        log,
		guard:      newActionGuard(),
		tab:        model.TabMint,
		properties: []model.Property{},
		owned:      []model.Property{},
	}
}

func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if _, ok := s.connectedAccount(); ok {
		return nil
	}
	if s.provider == nil {
		s.log.Warn("Wallet provider not detected", nil)
		return model.ErrNoProvider
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.log.Error("Account authorization failed", err, nil)
		if errors.Is(err, model.ErrAuthorizationRejected) {
			return err
		}
		return fmt.Errorf("%w: %v", model.ErrAuthorizationRejected, err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("%w: no accounts returned", model.ErrAuthorizationRejected)
	}
	account := accounts[0]

	chainID := s.opts.ChainID
	if chainID == nil {
		chainID, err = s.gateway.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("%w: chain id: %v", model.ErrReadFailed, err)
		}
	}

	signer, err := s.provider.Signer(account, chainID)
	if err != nil {
		if errors.Is(err, model.ErrAuthorizationRejected) {
			return err
		}
		return fmt.Errorf("%w: %v", model.ErrAuthorizationRejected, err)
	}

	s.mu.Lock()
	s.account = account
	s.chainID = chainID
	s.signer = signer
	s.connected = true
	s.mu.Unlock()

	s.log.Info("Wallet connected", map[string]interface{}{
		"account":  account.Hex(),
		"chain_id": chainID.String(),
		"contract": s.gateway.Address().Hex(),
	})
	return nil
}

func (s *Session) Info() model.ContractInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := model.ContractInfo{
		Address:   s.gateway.Address().Hex(),
		Connected: s.connected,
	}
	if s.connected {
		info.Account = s.account.Hex()
		info.ChainID = s.chainID.String()
	}
	return info
}

func (s *Session) View() model.ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := model.ViewState{
		Tab:        s.tab,
		Connected:  s.connected,
		Properties: cloneProperties(s.properties),
		Owned:      cloneProperties(s.owned),
	}
	if s.connected {
		view.Account = s.account.Hex()
	}
	return view
}

func (s *Session) SelectTab(ctx context.Context, tab model.Tab) (model.ViewState, error) {
	if !tab.Valid() {
		return s.View(), fmt.Errorf("%w: %q", model.ErrInvalidTab, tab)
	}

	s.mu.Lock()
	s.tab = tab
	s.mu.Unlock()

	var err error
	switch tab {
	case model.TabBuy:
		_, err = s.FetchProperties(ctx)
	case model.TabOwned:
		_, err = s.FetchOwnedProperties(ctx)
	}
	return s.View(), err
}

// ===============================================
// アクション
// ===============================================

func (s *Session) MintProperty(ctx context.Context, title, location, price string) (*model.TxResult, error) {
	release, err := s.begin(ActionMint)
	if err != nil {
		return nil, err
	}
	defer release()

	priceWei, err := model.ParseEther(price)
	if err != nil {
		return nil, err
	}

	result, err := s.transact(ctx, ActionMint, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.gateway.MintProperty(opts, title, location, priceWei)
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, ActionMint, false)
	return result, nil
}

func (s *Session) ListPropertyForSale(ctx context.Context, propertyID uint64, price string) (*model.TxResult, error) {
	release, err := s.begin(ActionList)
	if err != nil {
		return nil, err
	}
	defer release()

	priceWei, err := model.ParseEther(price)
	if err != nil {
		return nil, err
	}

	result, err := s.transact(ctx, ActionList, nil, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.gateway.ListPropertyForSale(opts, propertyID, priceWei)
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, ActionList, false)
	return result, nil
}

// BuyProperty は直近に取得した一覧の価格を支払額にする。価格が変わっていた場合の拒否はコントラクト側の責務
func (s *Session) BuyProperty(ctx context.Context, propertyID uint64) (*model.TxResult, error) {
	release, err := s.begin(ActionBuy)
	if err != nil {
		return nil, err
	}
	defer release()

	property, ok := s.fetchedProperty(propertyID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", model.ErrPropertyNotFetched, propertyID)
	}
	if property.Price == nil {
		return nil, fmt.Errorf("%w: property %d has no price", model.ErrInvalidAmount, propertyID)
	}
	if !property.ForSale {
		return nil, fmt.Errorf("%w: %d", model.ErrNotForSale, propertyID)
	}
	value := new(big.Int).Set(property.Price)

	result, err := s.transact(ctx, ActionBuy, value, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return s.gateway.BuyProperty(opts, propertyID)
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, ActionBuy, true)
	return result, nil
}

// begin は接続状態を確認し、アクションの実行枠を確保する
func (s *Session) begin(action string) (func(), error) {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()

	if !connected {
		return nil, model.ErrNotConnected
	}

	release, err := s.guard.acquire(action)
	if err != nil {
		s.log.Warn("Action already in flight", map[string]interface{}{"action": action})
		return nil, fmt.Errorf("%w: %s", err, action)
	}
	return release, nil
}

// transact はトランザクションを1つ送信し、確定するまで待つ。
// 送信後の待機は呼び出し元のキャンセルから切り離し、TX_TIMEOUTだけで打ち切る
func (s *Session) transact(ctx context.Context, action string, value *big.Int, submit func(*bind.TransactOpts) (*types.Transaction, error)) (*model.TxResult, error) {
	waitCtx := context.WithoutCancel(ctx)
	if s.opts.TxTimeout > 0 {
		deadline := time.Now().Add(s.opts.TxTimeout)
		var cancel, waitCancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
		waitCtx, waitCancel = context.WithDeadline(waitCtx, deadline)
		defer waitCancel()
	}

	tx, err := submit(s.transactOpts(ctx, value))
	if err != nil {
		s.log.Error("Transaction submission failed", err, map[string]interface{}{"action": action})
		return nil, fmt.Errorf("%w: %s: %v", model.ErrTransactionFailed, action, err)
	}

	txHash := tx.Hash().Hex()
	s.log.Info("Transaction submitted", map[string]interface{}{
		"action":  action,
		"tx_hash": txHash,
	})

	receipt, err := s.gateway.WaitMined(waitCtx, tx)
	if err != nil {
		s.log.Error("Waiting for transaction failed", err, map[string]interface{}{
			"action":  action,
			"tx_hash": txHash,
		})
		return nil, fmt.Errorf("%w: %s (tx %s): %v", model.ErrTransactionFailed, action, txHash, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		s.log.Warn("Transaction reverted", map[string]interface{}{
			"action":  action,
			"tx_hash": txHash,
		})
		return nil, fmt.Errorf("%w: %s (tx %s)", model.ErrTransactionReverted, action, txHash)
	}

	result := &model.TxResult{
		Action:  action,
		TxHash:  txHash,
		GasUsed: receipt.GasUsed,
		Status:  "success",
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}

	s.log.Info("Transaction confirmed", map[string]interface{}{
		"action":       action,
		"tx_hash":      txHash,
		"block_number": result.BlockNumber,
	})
	return result, nil
}

// transactOpts は署名者のコピーに ctx と支払額を設定する
func (s *Session) transactOpts(ctx context.Context, value *big.Int) *bind.TransactOpts {
	s.mu.RLock()
	opts := *s.signer
	s.mu.RUnlock()

	opts.Context = ctx
	opts.Value = value
	return &opts
}

// refresh は確定後に一覧を更新する。失敗してもアクション自体は成功扱い
func (s *Session) refresh(ctx context.Context, action string, all bool) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.FetchOwnedProperties(ctx); err != nil {
		s.log.Warn("Failed to refresh owned properties", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
	}
	if !all {
		return
	}
	if _, err := s.FetchProperties(ctx); err != nil {
		s.log.Warn("Failed to refresh properties", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
	}
}

func (s *Session) fetchedProperty(propertyID uint64) (model.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.properties {
		if p.ID == propertyID {
			return p, true
		}
	}
	return model.Property{}, false
}

// ===============================================
// 一覧取得
// ===============================================

func (s *Session) FetchProperties(ctx context.Context) ([]model.Property, error) {
	if _, ok := s.connectedAccount(); !ok {
		return nil, nil
	}

	s.mu.Lock()
	s.propertiesSeq++
	gen := s.propertiesSeq
	s.mu.Unlock()

	list, err := s.readAll(ctx)
	if err != nil {
		s.log.Error("Failed to fetch properties", err, nil)
		return nil, err
	}

	s.mu.Lock()
	if gen > s.propertiesGen {
		s.propertiesGen = gen
		s.properties = list
	} else {
		s.log.Debug("Dropped stale properties read", map[string]interface{}{"generation": gen})
	}
	s.mu.Unlock()

	return cloneProperties(list), nil
}

func (s *Session) FetchOwnedProperties(ctx context.Context) ([]model.Property, error) {
	account, ok := s.connectedAccount()
	if !ok {
		return nil, nil
	}

	s.mu.Lock()
	s.ownedSeq++
	gen := s.ownedSeq
	s.mu.Unlock()

	list, err := s.readAll(ctx)
	if err != nil {
		s.log.Error("Failed to fetch owned properties", err, nil)
		return nil, err
	}

	owned := make([]model.Property, 0, len(list))
	for _, p := range list {
		if strings.EqualFold(p.Owner, account.Hex()) {
			owned = append(owned, p)
		}
	}

	s.mu.Lock()
	if gen > s.ownedGen {
		s.ownedGen = gen
		s.owned = owned
	} else {
		s.log.Debug("Dropped stale owned properties read", map[string]interface{}{"generation": gen})
	}
	s.mu.Unlock()

	return cloneProperties(owned), nil
}

func (s *Session) connectedAccount() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account, s.connected
}

// readAll は 1..count の各IDを一度ずつ取得する。結果はID順
func (s *Session) readAll(ctx context.Context) ([]model.Property, error) {
	count, err := s.gateway.GetTotalProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: total properties: %v", model.ErrReadFailed, err)
	}
	if count == 0 {
		return []model.Property{}, nil
	}
	if count > MaxPropertyCount {
		return nil, fmt.Errorf("%w: total properties %d exceeds %d", model.ErrReadFailed, count, MaxPropertyCount)
	}

	list := make([]model.Property, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ReadConcurrency)

	for id := uint64(1); id <= count; id++ {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := s.gateway.GetPropertyDetails(gctx, id)
			if err != nil {
				return fmt.Errorf("%w: property %d: %v", model.ErrReadFailed, id, err)
			}
			list[id-1] = *p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, model.ErrReadFailed) {
			err = fmt.Errorf("%w: %v", model.ErrReadFailed, err)
		}
		return nil, err
	}
	return list, nil
}

func (s *Session) VerifyTransaction(ctx context.Context, txHash string) (*model.TxVerification, error) {
	return s.gateway.VerifyTransaction(ctx, txHash)
}

func cloneProperties(in []model.Property) []model.Property {
	out := make([]model.Property, len(in))
	copy(out, in)
	return out
}
