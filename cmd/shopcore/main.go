package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/config"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/consumer"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/shopcore/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/shopcore/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cf := config.GetConfig()

	conn, err := db.GetDbConn(db.ConnOpts{
		DbName:   cf.DbName,
		Host:     cf.DbHost,
		Port:     cf.DbPort,
		User:     cf.DbUser,
		Password: cf.DbPas,
	})
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	dao := db.NewDbDao(conn)
	if err := dao.InitMigrate(); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cf.RedisAddr,
		Password: cf.RedisPassword,
	})

	cartRepo := db.NewCartRepo(dao)
	productRepo := db.NewProductRepo(dao)
	inventoryRepo := db.NewInventoryRepo(dao)
	orderRepo := db.NewOrderRepo(dao)
	paymentRepo := db.NewPaymentRepo(dao)
	sessionRepo := redis_repo.NewSessionRepo(rdb, cf.CartTTL())

	cartService := service.NewCartService(
		dao, cartRepo, productRepo, inventoryRepo, sessionRepo,
		cf.CartTTL(), cf.StrictStock, logger)
	orderService := service.NewOrderService(orderRepo)
	paymentService := service.NewPaymentService(dao, paymentRepo, orderRepo, inventoryRepo, logger)
	checkoutService := service.NewCheckoutService(
		dao, cartRepo, inventoryRepo, orderService, paymentService, sessionRepo, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 定時掃過期購物車
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := cartService.ExpireStaleCarts(ctx, time.Now()); err != nil {
					logger.Error("stale cart sweep failed", zap.Error(err))
				}
			}
		}
	}()

	// 金流狀態回報消費
	paymentConsumer := consumer.NewPaymentStatusConsumer(
		cf.Brokers(), cf.ConsumerGroup, cf.PaymentTopic, paymentService, logger)
	defer paymentConsumer.Close()

	// 店面命令消費(登入合併、結帳)
	commandConsumer := consumer.NewStorefrontCommandConsumer(
		cf.Brokers(), cf.ConsumerGroup, cf.CommandTopic, cartService, checkoutService, logger)
	defer commandConsumer.Close()

	go func() {
		if err := commandConsumer.Start(ctx); err != nil {
			logger.Error("storefront command consumer stopped", zap.Error(err))
			stop()
		}
	}()

	logger.Info("shopcore started",
		zap.String("payment_topic", cf.PaymentTopic),
		zap.String("command_topic", cf.CommandTopic),
		zap.String("consumer_group", cf.ConsumerGroup))

	if err := paymentConsumer.Start(ctx); err != nil {
		logger.Fatal("payment status consumer stopped", zap.Error(err))
	}
}
