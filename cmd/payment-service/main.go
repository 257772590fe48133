// cmd/payment-service/main.go
package main

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"banquet/internal/pkg/bootstrap"
	"banquet/internal/pkg/mq"
	"banquet/internal/pkg/redis"
	"banquet/internal/service/payment/application"
	"banquet/internal/service/payment/domain"
	"banquet/internal/service/payment/gateway"
	"banquet/internal/service/payment/infrastructure"
	"banquet/internal/service/payment/interfaces"
	"banquet/internal/service/payment/port"
	"banquet/internal/zookeeper"
)

const serviceName = "payment-service"

// main 函数是应用的"组装根" (Composition Root)：
// 创建并组装所有依赖项，然后启动应用。
// 没有配置的外部依赖按单机模式降级：内存订单库、进程内订单锁、
// 日志审计，便于本地开发；生产环境配齐 MySQL/Kafka/ZooKeeper。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	var (
		auditWriter *kafka.Writer
		redisClient *redis.Client
		zkConn      *zookeeper.Conn
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8083,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)

			// 订单存储
			var orders domain.OrderRepository
			if dsn := cfg.Infra.Mysql.DSN; dsn != "" {
				db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
				if err != nil {
					log.Fatalf("failed to connect to mysql: %v", err)
				}
				orders, err = infrastructure.NewGormOrderRepository(db)
				if err != nil {
					log.Fatalf("failed to initialize order repository: %v", err)
				}
			} else {
				log.Println("⚠️ WARNING: MYSQL_DSN not set, using in-memory order store")
				orders = infrastructure.NewMemoryOrderRepository()
			}

			// 订单锁：多节点用 ZooKeeper，单机退化为进程内锁
			var locker port.OrderLocker
			if addrs := cfg.Infra.Zookeeper.Addrs; addrs != "" {
				conn, err := zookeeper.Connect(addrs, 5*time.Second)
				if err != nil {
					log.Fatalf("failed to connect to zookeeper: %v", err)
				}
				zkConn = conn
				locker = infrastructure.NewZookeeperOrderLocker(conn)
			} else {
				locker = infrastructure.NewLocalOrderLocker()
			}

			// 审计通道
			var audit port.AuditTrail
			if brokers := cfg.Infra.Kafka.Brokers; len(brokers) > 0 {
				auditWriter = mq.NewWriter(brokers, cfg.Infra.Kafka.AuditTopic)
				audit = infrastructure.NewKafkaAuditTrail(auditWriter)
			} else {
				audit = infrastructure.NewLogAuditTrail()
			}

			// 状态变更广播
			var events port.EventPublisher
			if addr := cfg.Infra.Redis.Addr; addr != "" {
				client, err := redis.NewClient(context.Background(), addr)
				if err != nil {
					log.Fatalf("failed to connect to redis: %v", err)
				}
				redisClient = client
				events = infrastructure.NewRedisEventPublisher(client)
			}

			review, err := infrastructure.NewCelReviewPolicy(cfg.App.ReviewRule)
			if err != nil {
				log.Fatalf("invalid review rule: %v", err)
			}

			verifier := gateway.NewSignatureVerifier(cfg.App.ServerKey)
			payments := application.NewPaymentApplicationService(orders, verifier, locker, audit, events, review, tracer)
			booking := application.NewBookingApplicationService(orders, tracer)

			interfaces.NewPaymentHandler(payments, booking).RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if auditWriter != nil {
				if err := auditWriter.Close(); err != nil {
					log.Printf("Error closing kafka writer: %v", err)
				}
			}
			if redisClient != nil {
				_ = redisClient.Close()
			}
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
