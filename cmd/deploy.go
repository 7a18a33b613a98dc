package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"realestate-marketplace-onchain/config"
	"realestate-marketplace-onchain/gateway/contract"
	"realestate-marketplace-onchain/logger"
)

var deployCmd = &cobra.Command{
	Use:                   "deploy [options]",
	Short:                 "Deploy the RealEstateMarketplace contract from its compiled artifact",
	DisableFlagsInUseLine: true,
	RunE:                  runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Chain.ArtifactPath == "" {
		return errors.New("ARTIFACT_PATH is required for deploy")
	}
	log := logger.New(cfg.Server.Env)

	artifact, err := contract.LoadArtifact(cfg.Chain.ArtifactPath)
	if err != nil {
		return err
	}

	provider, err := loadProvider(cfg.Wallet)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Chain.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Chain.TxTimeout)
		defer cancel()
	}

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPCURL, err)
	}
	defer client.Close()

	accounts, err := provider.RequestAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("wallet returned no accounts")
	}

	chainID := big.NewInt(cfg.Chain.ChainID)
	if cfg.Chain.ChainID == 0 {
		if chainID, err = client.ChainID(ctx); err != nil {
			return fmt.Errorf("failed to read chain id: %w", err)
		}
	}

	signer, err := provider.Signer(accounts[0], chainID)
	if err != nil {
		return err
	}
	signer.Context = ctx

	log.Info("Deploying contract", map[string]interface{}{
		"contract": artifact.ContractName,
		"deployer": accounts[0].Hex(),
		"chain_id": chainID.String(),
	})

	address, tx, err := contract.Deploy(ctx, client, signer, artifact)
	if err != nil {
		return err
	}

	log.Info("Contract deployed", map[string]interface{}{
		"address": address.Hex(),
		"tx_hash": tx.Hash().Hex(),
	})
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "RealEstateMarketplace deployed to: %s\n", address.Hex())
	return nil
}
