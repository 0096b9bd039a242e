package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain/cart"
	"coffeeshop/internal/handler"
	"coffeeshop/internal/infra/cartstorage"
	"coffeeshop/internal/infra/db"
	"coffeeshop/internal/infra/events"
	infraRepo "coffeeshop/internal/infra/repository"
	"coffeeshop/internal/logger"
	"coffeeshop/internal/server"
	"coffeeshop/internal/usecase"
	"coffeeshop/internal/validator"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	//.envは無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	//DB接続
	gormDB, err := db.Connect(cfg, zl)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//カートの保存先
	storage, closeStorage, err := newCartStorage(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStorage()

	carts, err := cart.NewRegistry(cfg.CartSessions, storage, zl.Named("cart"))
	if err != nil {
		return err
	}

	//注文イベント
	publisher := newPublisher(cfg, zl)
	defer func() { _ = publisher.Close() }()

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txm, productRepo, orderRepo, zl.Named("order"), cfg.CheckoutTimeout)
	cartUC := usecase.NewCartUsecase(carts, productRepo, orderUC, publisher, zl.Named("checkout"))
	productUC := usecase.NewProductUsecase(productRepo, txm, validator.NewProductValidator())
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo))
	auditUC := usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gormDB))

	//Handler生成
	e := server.New(cfg, zl, userRepo, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC, cfg),
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC, cartUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:    handler.NewAdminUserHandler(authUC),
		AdminAudit:   handler.NewAdminAuditHandler(auditUC),
	})

	return server.Start(ctx, e, cfg.Addr(), zl)
}

// REDIS_ADDRが空ならプロセス内メモリだけ
func newCartStorage(ctx context.Context, cfg config.Config, zl *zap.Logger) (cart.Storage, func(), error) {
	if cfg.RedisAddr == "" {
		zl.Warn("REDIS_ADDR not set, carts are kept in memory only")
		return cartstorage.NewMemoryStorage(), func() {}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := cartstorage.NewRedisClient(pingCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}

	storage := cartstorage.NewBreakerStorage(
		cartstorage.NewRedisStorage(client, cfg.CartTTL),
		cartstorage.BreakerSettings{Name: "cart-redis"},
		zl.Named("cart-storage"),
	)
	return storage, func() { _ = client.Close() }, nil
}

type orderPublisher interface {
	usecase.OrderEventPublisher
	Close() error
}

// KAFKA_BROKERSはカンマ区切り。空ならpublishしない
func newPublisher(cfg config.Config, zl *zap.Logger) orderPublisher {
	var brokers []string
	for _, b := range strings.Split(cfg.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return events.NoopPublisher{}
	}
	return events.NewKafkaPublisher(brokers, cfg.KafkaOrderTopic, zl.Named("events"))
}
