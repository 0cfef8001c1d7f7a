package config

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	viper "github.com/spf13/viper"
)

/*
init與read分開
init: 設置viper watch與onConfigChange
read: 一般讀取，需要讀寫鎖
*/
var config_singleton *ConfigSingleTon
var muonce sync.Once

type ConfigSingleTon struct {
	Config *Config
	mu     sync.RWMutex
}

type Config struct {
	DbName        string `mapstructure:"POSTGRES_DB"`
	DbHost        string `mapstructure:"POSTGRES_HOST"`
	DbPort        string `mapstructure:"POSTGRES_PORT"`
	DbUser        string `mapstructure:"POSTGRES_USER"`
	DbPas         string `mapstructure:"POSTGRES_PASSWORD"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	PaymentTopic  string `mapstructure:"KAFKA_PAYMENT_TOPIC"`
	CommandTopic  string `mapstructure:"KAFKA_COMMAND_TOPIC"`
	ConsumerGroup string `mapstructure:"KAFKA_CONSUMER_GROUP"`
	CartTTLHours  int    `mapstructure:"CART_TTL_HOURS"`
	StrictStock   bool   `mapstructure:"STRICT_STOCK"`
}

// Brokers KAFKA_BROKERS逗號分隔
func (c *Config) Brokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// CartTTL 預設48小時
func (c *Config) CartTTL() time.Duration {
	hours := c.CartTTLHours
	if hours <= 0 {
		hours = 48
	}
	return time.Duration(hours) * time.Hour
}

func GetConfig() *Config {
	initConfig()
	config_singleton.mu.RLock()
	defer config_singleton.mu.RUnlock()
	return config_singleton.Config
}

func initConfig() {
	if config_singleton == nil {
		muonce.Do(func() {
			config_singleton = &ConfigSingleTon{}
			if cf, err := loadConfig(); err == nil {
				config_singleton.Config = cf
			} else {
				log.Fatal("error read config")
			}
			viper.WatchConfig()
			viper.OnConfigChange(func(e fsnotify.Event) {
				if cf, err := loadConfig(); err == nil {
					config_singleton.mu.Lock()
					config_singleton.Config = cf
					config_singleton.mu.Unlock()
				} else {
					log.Panic("failed to reload config file")
				}
			})
		})
	}
}

/*
單純回傳錯誤 由外部決定要不要Fatal
*/
func loadConfig() (cf *Config, err error) {
	cf = &Config{}
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(cf)
	if err != nil {
		return
	}
	return
}
