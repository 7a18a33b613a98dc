package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"realestate-marketplace-onchain/config"
	"realestate-marketplace-onchain/gateway/contract"
	"realestate-marketplace-onchain/gateway/wallet"
	handler "realestate-marketplace-onchain/handler/marketplace"
	"realestate-marketplace-onchain/handler/middleware"
	"realestate-marketplace-onchain/logger"
	usecase "realestate-marketplace-onchain/usecase/marketplace"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:                   "serve [options]",
	Short:                 "Start the marketplace HTTP API",
	DisableFlagsInUseLine: true,
	RunE:                  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// --- 1. 初期設定 ---
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Server.Env)
	log.Info("Starting marketplace service", map[string]interface{}{
		"version":     version,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// --- 2. ethclientの初期化 ---
	client, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPCURL, err)
	}
	defer client.Close()
	log.Info("Connected to node", map[string]interface{}{"rpc_url": cfg.Chain.RPCURL})

	// --- 3. 依存性注入 ---
	gw, err := newGateway(client, cfg.Chain, log)
	if err != nil {
		return err
	}

	var provider wallet.Provider
	if cfg.Wallet.HasWallet() {
		if provider, err = loadProvider(cfg.Wallet); err != nil {
			return err
		}
	} else {
		log.Warn("No wallet configured; actions are disabled", nil)
	}

	opts := usecase.Options{
		ReadConcurrency: cfg.Chain.ReadConcurrency,
		TxTimeout:       cfg.Chain.TxTimeout,
	}
	if cfg.Chain.ChainID > 0 {
		opts.ChainID = big.NewInt(cfg.Chain.ChainID)
	}
	session := usecase.NewSession(gw, provider, opts, log)

	// 接続失敗は致命的ではない。アクションは ErrNotConnected を返し、読み取りは空になる
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := session.Connect(ctx); err != nil {
		log.Warn("Wallet not connected", map[string]interface{}{"error": err.Error()})
	}

	// --- 4. ルーティングの設定 ---
	router := newRouter(handler.NewMarketplaceHandler(session), log)

	// --- 5. CORSミドルウェアの設定 ---
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	// --- 6. サーバー起動 ---
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info("Shutting down server...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}
	log.Info("Server exited", nil)
	return nil
}

// newGateway はARTIFACT_PATHがあればそのABIを、なければ組み込みABIを使う
func newGateway(backend contract.Backend, cfg config.ChainConfig, log *logger.Logger) (*contract.RealEstateGateway, error) {
	if cfg.ArtifactPath == "" {
		return contract.NewRealEstateGateway(backend, cfg.ContractAddress, log)
	}

	artifact, err := contract.LoadArtifact(cfg.ArtifactPath)
	if err != nil {
		return nil, err
	}
	return contract.NewRealEstateGatewayWithABI(backend, cfg.ContractAddress, artifact.ABI, log)
}

func newRouter(h *handler.MarketplaceHandler, log *logger.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// ヘルスチェック用エンドポイント
	health := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
	router.HandleFunc("/", health).Methods(http.MethodGet)
	router.HandleFunc("/health", health).Methods(http.MethodGet)

	h.Register(router)
	return router
}
