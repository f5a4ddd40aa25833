package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	HTTP      ServerConfig
	MySQL     MySQLConfig
	Log       LogConfig
	Catalog   CatalogConfig
	Nextcloud NextcloudConfig
	MoMo      MoMoConfig
	VNPay     VNPayConfig
	ZaloPay   ZaloPayConfig
	Grants    GrantsConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type CatalogConfig struct {
	PlansPath string
}

type NextcloudConfig struct {
	BaseURL       string
	AdminUsername string
	AdminPassword string
	HTTPTimeout   time.Duration
}

type MoMoConfig struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string
	HTTPTimeout time.Duration
}

type VNPayConfig struct {
	TmnCode     string
	HashSecret  string
	PaymentURL  string
	ReturnURL   string
	OrderExpiry time.Duration
}

// ZaloPay signs order creation with Key1 and callback verification with
// Key2. They are distinct secrets and must stay separate values.
type ZaloPayConfig struct {
	AppID       string
	Key1        string
	Key2        string
	Endpoint    string
	CallbackURL string
	HTTPTimeout time.Duration
}

type GrantsConfig struct {
	MaxAttempts   int32
	RetryInterval time.Duration
	JobBatchSize  int32
}

type JobsConfig struct {
	GrantsDispatchInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billing-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Catalog: CatalogConfig{
			PlansPath: getEnv("BILLING_PLANS_PATH", "plans.json"),
		},
		Nextcloud: NextcloudConfig{
			BaseURL:       getEnv("NEXTCLOUD_URL", ""),
			AdminUsername: getEnv("NEXTCLOUD_ADMIN_USERNAME", ""),
			AdminPassword: getEnv("NEXTCLOUD_ADMIN_PASSWORD", ""),
			HTTPTimeout:   getSecondsEnv("NEXTCLOUD_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		MoMo: MoMoConfig{
			PartnerCode: getEnv("MOMO_PARTNER_CODE", ""),
			AccessKey:   getEnv("MOMO_ACCESS_KEY", ""),
			SecretKey:   getEnv("MOMO_SECRET_KEY", ""),
			Endpoint:    getEnv("MOMO_ENDPOINT", "https://test-payment.momo.vn/v2/gateway/api/create"),
			RedirectURL: getEnv("MOMO_REDIRECT_URL", ""),
			IPNURL:      getEnv("MOMO_IPN_URL", ""),
			HTTPTimeout: getSecondsEnv("MOMO_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		VNPay: VNPayConfig{
			TmnCode:     getEnv("VNPAY_TMN_CODE", ""),
			HashSecret:  getEnv("VNPAY_HASH_SECRET", ""),
			PaymentURL:  getEnv("VNPAY_PAYMENT_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:   getEnv("VNPAY_RETURN_URL", ""),
			OrderExpiry: getMinutesEnv("VNPAY_ORDER_EXPIRY_MINUTES", 15*time.Minute),
		},
		ZaloPay: ZaloPayConfig{
			AppID:       getEnv("ZALOPAY_APP_ID", ""),
			Key1:        getEnv("ZALOPAY_KEY1", ""),
			Key2:        getEnv("ZALOPAY_KEY2", ""),
			Endpoint:    getEnv("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/create"),
			CallbackURL: getEnv("ZALOPAY_CALLBACK_URL", ""),
			HTTPTimeout: getSecondsEnv("ZALOPAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Grants: GrantsConfig{
			MaxAttempts:   int32(getIntEnv("GRANTS_MAX_ATTEMPTS", 10)),
			RetryInterval: getMinutesEnv("GRANTS_RETRY_INTERVAL_MINUTES", 5*time.Minute),
			JobBatchSize:  int32(getIntEnv("GRANTS_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			GrantsDispatchInterval: getMinutesEnv("GRANTS_DISPATCH_INTERVAL_MINUTES", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
