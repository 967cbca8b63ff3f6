package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 SHOPSMART_DATABASE_DSN
const EnvPrefix = "SHOPSMART"

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Wizard   WizardConfig   `mapstructure:"wizard"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Stock    StockConfig    `mapstructure:"stock"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug | release | test
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | sqlite
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// RemoteConfig 远程商品 API；BaseURL 为空时使用本地数据库
type RemoteConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
}

type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // local | s3
	LocalDir  string `mapstructure:"local_dir"`
	PublicURL string `mapstructure:"public_url"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	CDNDomain string `mapstructure:"cdn_domain"`
	BasePath  string `mapstructure:"base_path"`
}

type WizardConfig struct {
	NoticeDelay    time.Duration `mapstructure:"notice_delay"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SubmitCooldown time.Duration `mapstructure:"submit_cooldown"`
}

type CheckoutConfig struct {
	ShippingCost string        `mapstructure:"shipping_cost"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
}

// Shipping 运费
func (c CheckoutConfig) Shipping() decimal.Decimal {
	d, err := decimal.NewFromString(c.ShippingCost)
	if err != nil {
		return decimal.NewFromInt(5)
	}
	return d
}

type StockConfig struct {
	LowThreshold int `mapstructure:"low_threshold"`
}

type TasksConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AdminConfig seed 命令创建的初始管理员
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// IsRemote 是否使用远程商品 API
func (c *Config) IsRemote() bool {
	return c.Remote.BaseURL != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=shopsmart port=5432 sslmode=disable TimeZone=UTC")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 64)
	v.SetDefault("log.max_backups", 7)

	v.SetDefault("jwt.secret", "change-me")
	v.SetDefault("jwt.access_ttl", "2h")
	v.SetDefault("jwt.refresh_ttl", "168h")

	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.timeout", "30s")
	v.SetDefault("remote.retry_count", 2)

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_dir", "./uploads")
	v.SetDefault("storage.public_url", "/uploads/")
	v.SetDefault("storage.base_path", "products")
	// 无默认值的键也要注册，AutomaticEnv 才能在 Unmarshal 时生效
	for _, key := range []string{"bucket", "region", "access_key", "secret_key", "endpoint", "cdn_domain"} {
		v.SetDefault("storage."+key, "")
	}

	v.SetDefault("wizard.notice_delay", "2s")
	v.SetDefault("wizard.session_ttl", "12h")
	v.SetDefault("wizard.submit_cooldown", "3s")

	v.SetDefault("checkout.shipping_cost", "5.00")
	v.SetDefault("checkout.cooldown", "5s")
	v.SetDefault("stock.low_threshold", 5)
	v.SetDefault("tasks.enabled", true)

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "admin123")
}

// Load 读取配置：.env -> config 文件 -> SHOPSMART_* 环境变量
// path 为空时在当前目录与 ./config 下查找 config.yaml，找不到文件只用默认值
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return &cfg, nil
}
