package config

// Config 配置主体
type Config struct {
	Server                    ServerConfig              `mapstructure:"server"`
	DB                        DBConfig                  `mapstructure:"database"`
	Redis                     RedisConfig               `mapstructure:"redis"`
	Mongo                     MongoConfig               `mapstructure:"mongo"`
	JWT                       JWTConfig                 `mapstructure:"jwt"`
	Log                       LogConfig                 `mapstructure:"log"`
	Logstash                  LogstashConfig            `mapstructure:"logstash"`
	Identity                  IdentityConfig            `mapstructure:"identity"`
	Community                 CommunityConfig           `mapstructure:"community"`
	Kafka                     KafkaConfig               `mapstructure:"kafka"`
	KafkaEventProducer        KafkaEventProducer        `mapstructure:"kafka_event_producer"`
	KafkaNotificationConsumer KafkaNotificationConsumer `mapstructure:"kafka_notification_consumer"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
	MaxPool  uint64 `mapstructure:"max_pool"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// LogConfig 日志级别：debug / info / warn / error
type LogConfig struct {
	Level string `mapstructure:"level"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// IdentityConfig 身份服务配置，用于解析昵称头像
type IdentityConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Timeout  int    `mapstructure:"timeout"`
	CacheTTL int    `mapstructure:"cache_ttl"`
}

// CommunityConfig 社区引擎参数
type CommunityConfig struct {
	StoreTimeout          int    `mapstructure:"store_timeout"`
	RetryAttempts         int    `mapstructure:"retry_attempts"`
	RetryBackoff          int    `mapstructure:"retry_backoff"`
	ReportReviewThreshold int64  `mapstructure:"report_review_threshold"`
	RuleCacheTTL          int    `mapstructure:"rule_cache_ttl"`
	ReconcileSpec         string `mapstructure:"reconcile_spec"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
}

type KafkaEventProducer struct {
	Topic string `mapstructure:"topic"`
}

type KafkaNotificationConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}
