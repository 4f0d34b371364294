package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wms-platform/outbound-fulfillment-service/internal/infrastructure/gateways"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/kafka"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/mongodb"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/outbox"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
)

// Config holds application configuration
type Config struct {
	ServerAddr        string
	MongoDB           *mongodb.Config
	Kafka             *kafka.Config
	Gateways          *gateways.Config
	Outbox            *outbox.PublisherConfig
	TenantPool        tenant.PoolConfig
	TenantSettingsTTL time.Duration
	TenantDrainGrace  time.Duration
	RequireTenant     bool
}

func loadConfig() *Config {
	pool := tenant.DefaultPoolConfig()
	pool.MaxPoolSize = uint64(getEnvInt("TENANT_MAX_POOL_SIZE", int(pool.MaxPoolSize)))
	pool.ConnectTimeout = getEnvDuration("TENANT_CONNECT_TIMEOUT", pool.ConnectTimeout)
	pool.SocketTimeout = getEnvDuration("TENANT_SOCKET_TIMEOUT", pool.SocketTimeout)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	kafkaConfig.ClientID = serviceName

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8012"),
		MongoDB: &mongodb.Config{
			URI:             getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:        getEnv("MONGODB_DATABASE", "outbound_fulfillment"),
			ConnectTimeout:  getEnvDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
			SocketTimeout:   getEnvDuration("MONGODB_SOCKET_TIMEOUT", 30*time.Second),
			MaxPoolSize:     uint64(getEnvInt("MONGODB_MAX_POOL_SIZE", 100)),
			MinPoolSize:     10,
			MaxConnIdleTime: 5 * time.Minute,
		},
		Kafka: kafkaConfig,
		Gateways: &gateways.Config{
			InventoryServiceURL: getEnv("INVENTORY_SERVICE_URL", "http://localhost:8008"),
			ProductServiceURL:   getEnv("PRODUCT_SERVICE_URL", "http://localhost:8009"),
			TaskServiceURL:      getEnv("TASK_SERVICE_URL", "http://localhost:8010"),
			AccountServiceURL:   getEnv("ACCOUNT_SERVICE_URL", "http://localhost:8011"),
			ShippingServiceURL:  getEnv("SHIPPING_SERVICE_URL", "http://localhost:8007"),
			TenantServiceURL:    getEnv("TENANT_SERVICE_URL", "http://localhost:8013"),
			Timeout:             getEnvDuration("GATEWAY_TIMEOUT", gateways.DefaultTimeout),
		},
		Outbox: &outbox.PublisherConfig{
			PollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		},
		TenantPool:        pool,
		TenantSettingsTTL: getEnvDuration("TENANT_SETTINGS_TTL", 5*time.Minute),
		TenantDrainGrace:  getEnvDuration("TENANT_DRAIN_GRACE", tenant.DefaultDrainGrace),
		RequireTenant:     getEnv("REQUIRE_TENANT", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
