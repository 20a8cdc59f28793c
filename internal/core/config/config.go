package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Log struct {
	Level string
	JSON  bool
	// File 非空时启用文件写入 + 切割
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// JWT 双令牌：access 短效携带身份，refresh 长效只带 uid，各用各的密钥
type JWT struct {
	Issuer             string
	AccessSecret       string
	RefreshSecret      string
	AccessTokenTTLMin  int
	RefreshTokenTTLDay int
}

type Auth struct {
	BcryptCost  int
	HashWorkers int64 // bcrypt 并发上限，防止算哈希占满所有 P
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type S3 struct {
	Region    string
	Bucket    string
	Endpoint  string // 兼容 MinIO；空则走 AWS 默认
	AccessKey string
	SecretKey string
	PublicURL string // 对外可访问的基础 URL
}

type AMQP struct {
	URL string // 空则不发账号事件
}

type Config struct {
	App   App
	Log   Log
	JWT   JWT
	Auth  Auth
	DB    DB
	Redis Redis `mapstructure:"redis"`
	S3    S3
	AMQP  AMQP
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("jwt.accesstokenttlmin", 15)
	v.SetDefault("jwt.refreshtokenttlday", 10)
	v.SetDefault("auth.bcryptcost", 10)
	v.SetDefault("auth.hashworkers", 8)

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}
