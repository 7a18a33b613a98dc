package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"realestate-marketplace-onchain/config"
	"realestate-marketplace-onchain/model"
)

// Provider はアカウントの認可と署名を担当する (ブラウザウォレットの代替)
type Provider interface {
	// RequestAccounts は認可済みアカウントを返す
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Signer はアカウントで署名するTransactOptsを返す
	Signer(account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
}

// ===============================================
// 実装: KeystoreProvider
// ===============================================

// KeystoreProvider はgo-ethereumのキーストアディレクトリを使う
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	passphrase string
}

func NewKeystoreProvider(ks *keystore.KeyStore, passphrase string) *KeystoreProvider {
	return &KeystoreProvider{ks: ks, passphrase: passphrase}
}

// RequestAccounts は先頭アカウントをパスフレーズでアンロックして返す
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	accs := p.ks.Accounts()
	if len(accs) == 0 {
		return nil, fmt.Errorf("%w: keystore has no accounts", model.ErrAuthorizationRejected)
	}

	if err := p.ks.Unlock(accs[0], p.passphrase); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrAuthorizationRejected, err)
	}

	addrs := make([]common.Address, len(accs))
	for i, acc := range accs {
		addrs[i] = acc.Address
	}
	return addrs, nil
}

func (p *KeystoreProvider) Signer(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	return bind.NewKeyStoreTransactorWithChainID(p.ks, accounts.Account{Address: account}, chainID)
}

// ===============================================
// 実装: KeyProvider
// ===============================================

// KeyProvider は16進の秘密鍵1つを使う (ローカル開発用)
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeyProvider(hexKey string) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid private key: %v", model.ErrAuthorizationRejected, err)
	}
	return &KeyProvider{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) Signer(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if account != p.address {
		return nil, fmt.Errorf("%w: unknown account %s", model.ErrAuthorizationRejected, account.Hex())
	}
	return bind.NewKeyedTransactorWithChainID(p.key, chainID)
}

// FromConfig は設定からProviderを作る。ウォレット未設定なら model.ErrNoProvider
func FromConfig(cfg config.WalletConfig) (Provider, error) {
	switch {
	case cfg.PrivateKey != "":
		return NewKeyProvider(cfg.PrivateKey)
	case cfg.KeystoreDir != "":
		ks := keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP)
		return NewKeystoreProvider(ks, cfg.Passphrase), nil
	default:
		return nil, model.ErrNoProvider
	}
}
