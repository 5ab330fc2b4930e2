package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.SetEnvPrefix("AGORA")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("database.max_idle", 10)
	viper.SetDefault("database.max_open", 100)
	viper.SetDefault("database.max_lifetime", 60)
	viper.SetDefault("mongo.database", "agora")
	viper.SetDefault("identity.timeout", 3000)
	viper.SetDefault("identity.cache_ttl", 600)
	viper.SetDefault("community.store_timeout", 3000)
	viper.SetDefault("community.retry_attempts", 3)
	viper.SetDefault("community.retry_backoff", 100)
	viper.SetDefault("community.report_review_threshold", 10)
	viper.SetDefault("community.rule_cache_ttl", 300)
	viper.SetDefault("community.reconcile_spec", "0 */5 * * * *")
	viper.SetDefault("kafka_event_producer.topic", "community-events")
	viper.SetDefault("kafka_notification_consumer.topic", "community-events")
	viper.SetDefault("kafka_notification_consumer.group_id", "agora-notification")
}
