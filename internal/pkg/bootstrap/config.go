// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Config 是服务的全量配置，yaml 文件提供基线，环境变量覆盖。
type Config struct {
	App struct {
		// ServerKey 是与支付网关共享的签名密钥
		ServerKey string `yaml:"serverKey"`
		// ReviewRule 是人工复核的 CEL 表达式，空值使用内置默认规则
		ReviewRule string `yaml:"reviewRule"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			// DSN 为空时退化为内存存储（本地开发 / 测试）
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers    []string `yaml:"brokers"`
			AuditTopic string   `yaml:"auditTopic"`
		} `yaml:"kafka"`
		Zookeeper struct {
			// Addrs 非空时启用跨节点的订单锁
			Addrs string `yaml:"addrs"`
		} `yaml:"zookeeper"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置：先读 CONFIG_FILE 指向的 yaml（默认 config.yaml，
// 不存在则跳过），再用环境变量覆盖。必须在 StartService 之前调用。
func Init() {
	cfg := &Config{}

	path := getEnv("CONFIG_FILE", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}
		log.Printf("Loaded config from %s", path)
	}

	// 环境变量优先级高于文件
	if v := os.Getenv("GATEWAY_SERVER_KEY"); v != "" {
		cfg.App.ServerKey = v
	}
	if v := os.Getenv("REVIEW_RULE"); v != "" {
		cfg.App.ReviewRule = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_AUDIT_TOPIC"); v != "" {
		cfg.Infra.Kafka.AuditTopic = v
	}
	if v := os.Getenv("ZOOKEEPER_ADDRS"); v != "" {
		cfg.Infra.Zookeeper.Addrs = v
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}

	if cfg.Infra.Kafka.AuditTopic == "" {
		cfg.Infra.Kafka.AuditTopic = "payment-notification-audit"
	}
	if cfg.Infra.Jaeger.Endpoint == "" {
		cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	}

	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		log.Fatal("FATAL: bootstrap.Init must be called before GetCurrentConfig")
	}
	return cfg
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
