package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"gorm.io/driver/sqlite"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/accounting"
	grpc_adapter "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/out/mysql"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
	"github.com/JoeShih716/go-ledger-closing/internal/config"
	"github.com/JoeShih716/go-ledger-closing/pkg/logger"
	"github.com/JoeShih716/go-ledger-closing/pkg/mysql"
	"github.com/JoeShih716/go-ledger-closing/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. 載入設定
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// 2. 初始化 Logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// 3. 初始化帳務資料庫
	ctx := context.Background()
	store, closeStore, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("close store failed", zap.Error(err))
		}
	}()

	// 4. 初始化 UseCase
	closingUseCase := newClosingUseCase(store, cfg, log)

	// 5. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.LoggingInterceptor(log)))
	grpc_adapter.RegisterClosingServiceServer(s, grpc_adapter.NewGrpcServer(closingUseCase))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)
	reflection.Register(s)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting grpc server", zap.String("addr", cfg.Server.Addr), zap.String("store", string(cfg.Store.Driver)))
		serveErr <- s.Serve(lis)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", zap.Stringer("signal", sig))
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	}

	// 進行中的結帳交易給 ShutdownTimeout 的時間完成
	healthServer.Shutdown()
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("graceful stop timed out, forcing stop")
		s.Stop()
	}
	log.Info("server exited")
	return nil
}

func newClosingUseCase(store usecase.Store, cfg *config.Config, log *zap.Logger) *usecase.ClosingUseCase {
	orchestrator := usecase.NewClosingOrchestrator(store,
		accounting.NewRegularizationStep(cfg.Accounting.ResultAccount),
		accounting.NewClosingStep(),
		accounting.NewOpeningStep(),
		log.Named("orchestrator"),
	)
	return usecase.NewClosingUseCase(store, orchestrator, log.Named("closing"))
}

// newStore 依 store.driver 建立資料庫，回傳的 close 函式負責釋放資源
func newStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (usecase.Store, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMySQL, config.StoreDriverSQLite:
		var (
			client *mysql.Client
			err    error
		)
		if cfg.Store.Driver == config.StoreDriverMySQL {
			client, err = mysql.NewClient(cfg.MySQL, log)
		} else {
			if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
			client, err = mysql.NewClientWithDialector(sqlite.Open(cfg.Store.SQLitePath), cfg.MySQL, log)
		}
		if err != nil {
			return nil, nil, err
		}
		store := mysql_adapter.NewStore(client, log.Named("store"))
		if cfg.Store.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				return nil, nil, errors.Join(err, client.Close())
			}
		}
		return store, client.Close, nil

	case config.StoreDriverMemory:
		var w *wal.WAL
		if cfg.Store.WALPath != "" {
			var err error
			if w, err = wal.Open(cfg.Store.WALPath); err != nil {
				return nil, nil, err
			}
		}
		store, err := memory_adapter.NewStore(w, log.Named("store"))
		if err != nil {
			if w != nil {
				err = errors.Join(err, w.Close())
			}
			return nil, nil, err
		}
		closeFn := func() error { return nil }
		if w != nil {
			closeFn = w.Close
		}
		return store, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("invalid store driver %q", cfg.Store.Driver)
	}
}
