package roulette

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config 生产环境配置结构
type Config struct {
	// 转盘动画配置
	Spin *EngineConfig `mapstructure:"spin"`

	// 存储配置
	Store *StoreConfig `mapstructure:"store"`

	// Redis 配置
	Redis *RedisConfig `mapstructure:"redis"`

	// 熔断器配置
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// 日志配置
	Logging *LoggingConfig `mapstructure:"logging"`

	// NATS 结果发布配置
	NATS *NATSConfig `mapstructure:"nats"`
}

// DefaultConfig 返回全部默认值的配置
func DefaultConfig() *Config {
	return &Config{
		Spin:           DefaultEngineConfig(),
		Store:          DefaultStoreConfig(),
		Redis:          DefaultRedisConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Logging:        DefaultLoggingConfig(),
		NATS:           DefaultNATSConfig(),
	}
}

func (c *Config) Validate() error {
	if c.Spin == nil || c.Store == nil || c.Redis == nil || c.CircuitBreaker == nil || c.Logging == nil || c.NATS == nil {
		return ErrInvalidConfig.WithDetails("missing config section")
	}

	if err := c.Spin.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}

	// 验证 Redis 配置
	if c.Store.Backend == StoreBackendRedis {
		if c.Redis.Addr == "" && len(c.Redis.ClusterAddrs) == 0 {
			return ErrInvalidConfig.WithDetails("redis address is required")
		}
		if c.Redis.PoolSize <= 0 {
			return ErrInvalidConfig.WithDetails("redis pool size must be positive")
		}
	}

	if c.CircuitBreaker.Enabled && (c.CircuitBreaker.FailureRatio <= 0 || c.CircuitBreaker.FailureRatio > 1) {
		return ErrInvalidConfig.WithDetails("circuit breaker failure ratio must be in (0, 1]")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("invalid log level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return ErrInvalidConfig.WithDetails("nats url is required when nats is enabled")
	}

	return nil
}

// EngineConfig 转盘动画与抽选参数
type EngineConfig struct {
	MinSpinDuration    time.Duration `mapstructure:"min_duration"`
	SpinDurationJitter time.Duration `mapstructure:"duration_jitter"`
	FakeProbability    float64       `mapstructure:"fake_probability"`
	FakeExtraDuration  time.Duration `mapstructure:"fake_extra_duration"`
	FakeMaxSteps       int           `mapstructure:"fake_max_steps"`
	RewindDuration     time.Duration `mapstructure:"rewind_duration"`
	MinExtraRotations  int           `mapstructure:"min_extra_rotations"`
	MaxExtraRotations  int           `mapstructure:"max_extra_rotations"`
	HeartbeatThreshold float64       `mapstructure:"heartbeat_threshold"`
	SpinFadeThreshold  float64       `mapstructure:"spin_fade_threshold"`
	FrameInterval      time.Duration `mapstructure:"frame_interval"`
	WinSoundVariants   int           `mapstructure:"win_sound_variants"`
}

// DefaultEngineConfig 返回默认动画配置
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MinSpinDuration:    DefaultMinSpinDuration,
		SpinDurationJitter: DefaultSpinDurationJitter,
		FakeProbability:    DefaultFakeProbability,
		FakeExtraDuration:  DefaultFakeExtraDuration,
		FakeMaxSteps:       DefaultFakeMaxSteps,
		RewindDuration:     DefaultRewindDuration,
		MinExtraRotations:  DefaultMinExtraRotations,
		MaxExtraRotations:  DefaultMaxExtraRotations,
		HeartbeatThreshold: DefaultHeartbeatThreshold,
		SpinFadeThreshold:  DefaultSpinFadeThreshold,
		FrameInterval:      DefaultFrameInterval,
		WinSoundVariants:   DefaultWinSoundVariants,
	}
}

// Validate validates the engine configuration
func (c *EngineConfig) Validate() error {
	switch {
	case c.MinSpinDuration <= 0:
		return ErrInvalidConfig.WithDetails("spin.min_duration must be positive")
	case c.SpinDurationJitter < 0 || c.FakeExtraDuration < 0:
		return ErrInvalidConfig.WithDetails("spin durations cannot be negative")
	case c.FakeProbability < 0 || c.FakeProbability > 1:
		return ErrInvalidConfig.WithDetails("spin.fake_probability must be in [0, 1]")
	case c.FakeMaxSteps < 1:
		return ErrInvalidConfig.WithDetails("spin.fake_max_steps must be at least 1")
	case c.RewindDuration <= 0:
		return ErrInvalidConfig.WithDetails("spin.rewind_duration must be positive")
	case c.MinExtraRotations < 0 || c.MaxExtraRotations < c.MinExtraRotations || c.MaxExtraRotations > MaxExtraRotations:
		return ErrInvalidConfig.WithDetails("spin extra rotations out of range")
	case c.SpinFadeThreshold < 0 || c.HeartbeatThreshold <= 0 || c.HeartbeatThreshold > 1 || c.SpinFadeThreshold > c.HeartbeatThreshold:
		return ErrInvalidConfig.WithDetails("spin audio thresholds must satisfy 0 <= fade <= heartbeat <= 1")
	case c.FrameInterval <= 0 || c.FrameInterval > MaxFrameInterval:
		return ErrInvalidConfig.WithDetails("spin.frame_interval out of range")
	case c.WinSoundVariants < 1:
		return ErrInvalidConfig.WithDetails("spin.win_sound_variants must be at least 1")
	}
	return nil
}

// Store backends
const (
	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

// StoreConfig 文档与结果存储配置
type StoreConfig struct {
	Backend      string `mapstructure:"backend"`
	DataDir      string `mapstructure:"data_dir"`
	DocumentFile string `mapstructure:"document_file"`
	ResultFile   string `mapstructure:"result_file"`
	WatchChanges bool   `mapstructure:"watch_changes"`
}

// DefaultStoreConfig 返回默认存储配置
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend:      StoreBackendFile,
		DataDir:      ".",
		DocumentFile: DefaultDocumentFile,
		ResultFile:   DefaultResultFile,
		WatchChanges: true,
	}
}

// Validate validates the store configuration
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case StoreBackendFile:
		if c.DocumentFile == "" || c.ResultFile == "" {
			return ErrInvalidConfig.WithDetails("store file names are required")
		}
	case StoreBackendRedis:
	default:
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("unknown store backend %q", c.Backend))
	}
	return nil
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接配置
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 连接池配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// 超时配置
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`

	// 集群配置
	ClusterMode  bool     `mapstructure:"cluster_mode"`
	ClusterAddrs []string `mapstructure:"cluster_addrs"`

	// TLS 配置
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	CAFile     string `mapstructure:"ca_file"`

	// 键配置
	DocumentKey   string `mapstructure:"document_key"`
	ResultKey     string `mapstructure:"result_key"`
	ResultHistory int64  `mapstructure:"result_history"`
}

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Name          string        `mapstructure:"name"`
	MaxRequests   uint32        `mapstructure:"max_requests"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureRatio  float64       `mapstructure:"failure_ratio"`
	MinRequests   uint32        `mapstructure:"min_requests"`
	OnStateChange bool          `mapstructure:"on_state_change"`
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:       true,
		Name:          DefaultCircuitBreakerName,
		MaxRequests:   DefaultCircuitBreakerMaxRequests,
		Interval:      DefaultCircuitBreakerInterval,
		Timeout:       DefaultCircuitBreakerTimeout,
		FailureRatio:  DefaultCircuitBreakerFailureRatio,
		MinRequests:   DefaultCircuitBreakerMinRequests,
		OnStateChange: DefaultCircuitBreakerOnStateChange,
	}
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultLoggingConfig 返回默认日志配置
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{Level: "info", Format: "console"}
}

// NATSConfig 结果事件发布配置
type NATSConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Subject string        `mapstructure:"subject"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultNATSConfig 返回默认 NATS 配置
func DefaultNATSConfig() *NATSConfig {
	return &NATSConfig{
		Enabled: false,
		URL:     "nats://127.0.0.1:4222",
		Subject: DefaultNATSSubject,
		Timeout: DefaultSinkTimeout,
	}
}

// ConfigManager 配置管理器
type ConfigManager struct {
	mu     sync.RWMutex
	viper  *viper.Viper
	config *Config
	logger Logger
}

// NewConfigManager 创建配置管理器
func NewConfigManager(logger ...Logger) *ConfigManager {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/roulette")
	v.AddConfigPath("$HOME/.roulette")

	// 设置环境变量前缀
	v.SetEnvPrefix("ROULETTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var l Logger
	if len(logger) > 0 {
		l = logger[0]
	}

	return &ConfigManager{
		viper:  v,
		logger: orDefaultLogger(l),
	}
}

// SetConfigFile 指定配置文件路径, 跳过搜索路径
func (cm *ConfigManager) SetConfigFile(path string) { cm.viper.SetConfigFile(path) }

// LoadConfig 加载配置
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	// 设置默认值
	cm.setDefaults()

	// 读取配置文件
	if err := cm.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 配置文件不存在时使用默认配置
		cm.logger.Debug("config file not found, using defaults")
	}

	config, err := cm.decode()
	if err != nil {
		return nil, err
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return config, nil
}

func (cm *ConfigManager) decode() (*Config, error) {
	// 解析配置
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// setDefaults 设置默认配置值
func (cm *ConfigManager) setDefaults() {
	// 转盘默认配置
	cm.viper.SetDefault("spin.min_duration", "7s")
	cm.viper.SetDefault("spin.duration_jitter", "1s")
	cm.viper.SetDefault("spin.fake_probability", DefaultFakeProbability)
	cm.viper.SetDefault("spin.fake_extra_duration", "1s")
	cm.viper.SetDefault("spin.fake_max_steps", DefaultFakeMaxSteps)
	cm.viper.SetDefault("spin.rewind_duration", "800ms")
	cm.viper.SetDefault("spin.min_extra_rotations", DefaultMinExtraRotations)
	cm.viper.SetDefault("spin.max_extra_rotations", DefaultMaxExtraRotations)
	cm.viper.SetDefault("spin.heartbeat_threshold", DefaultHeartbeatThreshold)
	cm.viper.SetDefault("spin.spin_fade_threshold", DefaultSpinFadeThreshold)
	cm.viper.SetDefault("spin.frame_interval", "16ms")
	cm.viper.SetDefault("spin.win_sound_variants", DefaultWinSoundVariants)

	// 存储默认配置
	cm.viper.SetDefault("store.backend", StoreBackendFile)
	cm.viper.SetDefault("store.data_dir", ".")
	cm.viper.SetDefault("store.document_file", DefaultDocumentFile)
	cm.viper.SetDefault("store.result_file", DefaultResultFile)
	cm.viper.SetDefault("store.watch_changes", true)

	// Redis 默认配置
	cm.viper.SetDefault("redis.addr", DefaultRedisAddr)
	cm.viper.SetDefault("redis.password", DefaultRedisPassword)
	cm.viper.SetDefault("redis.db", DefaultRedisDB)
	cm.viper.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	cm.viper.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	cm.viper.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	cm.viper.SetDefault("redis.dial_timeout", "5s")
	cm.viper.SetDefault("redis.read_timeout", "3s")
	cm.viper.SetDefault("redis.write_timeout", "3s")
	cm.viper.SetDefault("redis.pool_timeout", "4s")
	cm.viper.SetDefault("redis.cluster_mode", false)
	cm.viper.SetDefault("redis.tls_enabled", false)
	cm.viper.SetDefault("redis.document_key", DocumentKey)
	cm.viper.SetDefault("redis.result_key", ResultListKey)
	cm.viper.SetDefault("redis.result_history", DefaultResultHistory)

	// 熔断器默认配置
	cm.viper.SetDefault("circuit_breaker.enabled", true)
	cm.viper.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	cm.viper.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	cm.viper.SetDefault("circuit_breaker.interval", "60s")
	cm.viper.SetDefault("circuit_breaker.timeout", "30s")
	cm.viper.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	cm.viper.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
	cm.viper.SetDefault("circuit_breaker.on_state_change", true)

	// 日志默认配置
	cm.viper.SetDefault("logging.level", "info")
	cm.viper.SetDefault("logging.format", "console")

	// NATS 默认配置
	cm.viper.SetDefault("nats.enabled", false)
	cm.viper.SetDefault("nats.url", "nats://127.0.0.1:4222")
	cm.viper.SetDefault("nats.subject", DefaultNATSSubject)
	cm.viper.SetDefault("nats.timeout", "3s")
}

// WatchConfig 监听配置变化. 必须先通过 LoadConfig 读到配置文件;
// 新配置通过校验后才会替换当前配置并回调, 否则保留旧配置
func (cm *ConfigManager) WatchConfig(callback func(*Config)) error {
	if cm.viper.ConfigFileUsed() == "" {
		return ErrInvalidConfig.WithDetails("no config file to watch")
	}
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		config, err := cm.decode()
		if err != nil {
			// 记录错误但不中断服务
			cm.logger.Error("config reload from %s rejected: %v", e.Name, err)
			return
		}

		cm.mu.Lock()
		cm.config = config
		cm.mu.Unlock()

		cm.logger.Info("config reloaded from %s", e.Name)
		if callback != nil {
			callback(config)
		}
	})
	cm.viper.WatchConfig()

	return nil
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ReloadConfig 重新加载配置
func (cm *ConfigManager) ReloadConfig() (*Config, error) { return cm.LoadConfig() }

// DefaultRedisConfig 返回默认的Redis配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:          DefaultRedisAddr,
		Password:      DefaultRedisPassword,
		DB:            DefaultRedisDB,
		PoolSize:      DefaultRedisPoolSize,
		MinIdleConns:  DefaultRedisMinIdleConns,
		MaxRetries:    DefaultRedisMaxRetries,
		DialTimeout:   DefaultRedisDialTimeout,
		ReadTimeout:   DefaultRedisReadTimeout,
		WriteTimeout:  DefaultRedisWriteTimeout,
		PoolTimeout:   DefaultRedisPoolTimeout,
		DocumentKey:   DocumentKey,
		ResultKey:     ResultListKey,
		ResultHistory: DefaultResultHistory,
	}
}

// NewRedisClientFromConfig 从配置创建 Redis 客户端, 集群模式返回 ClusterClient
func NewRedisClientFromConfig(config *RedisConfig) (redis.UniversalClient, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	var tlsConfig *tls.Config
	if config.TLSEnabled {
		var err error
		if tlsConfig, err = loadTLSConfig(config); err != nil {
			return nil, err
		}
	}

	if config.ClusterMode {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        config.ClusterAddrs,
			Password:     config.Password,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConns,
			MaxRetries:   config.MaxRetries,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			PoolTimeout:  config.PoolTimeout,
			TLSConfig:    tlsConfig,
		}), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolTimeout:  config.PoolTimeout,
		TLSConfig:    tlsConfig,
	}), nil
}

func loadTLSConfig(config *RedisConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if config.CertFile != "" && config.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
		if err != nil {
			return nil, ErrInvalidConfig.WithDetails("redis client certificate").WithCause(err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if config.CAFile != "" {
		pem, err := os.ReadFile(config.CAFile)
		if err != nil {
			return nil, ErrInvalidConfig.WithDetails("redis CA file").WithCause(err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ErrInvalidConfig.WithDetails("redis CA file contains no certificates")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// NewDefaultConfigManager 创建默认配置的配置管理器
func NewDefaultConfigManager() *ConfigManager {
	cm := NewConfigManager()
	cm.setDefaults()
	cm.config = DefaultConfig()
	return cm
}
