package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"realestate-marketplace-onchain/config"
	"realestate-marketplace-onchain/gateway/wallet"
)

// loadProvider はパスフレーズ未設定かつ標準入力が端末なら、キーストアのパスフレーズを尋ねる
func loadProvider(cfg config.WalletConfig) (wallet.Provider, error) {
	if cfg.PrivateKey == "" && cfg.KeystoreDir != "" && cfg.Passphrase == "" {
		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			_, _ = fmt.Fprint(os.Stderr, "Keystore passphrase: ")
			pass, err := term.ReadPassword(fd)
			_, _ = fmt.Fprintln(os.Stderr)
			if err != nil {
				return nil, fmt.Errorf("failed to read passphrase: %w", err)
			}
			cfg.Passphrase = string(pass)
		}
	}
	return wallet.FromConfig(cfg)
}
