package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvDevelopment 允许在错误响应中返回错误链等调试信息。
	EnvDevelopment = "development"
	// EnvProduction 隐藏 5xx 细节并默认启用严格网络模式。
	EnvProduction = "production"

	ModeMock = "mock"
	ModeReal = "real"

	DriverMemory = "memory"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"

	EventsNoop     = "noop"
	EventsMemory   = "memory"
	EventsRedis    = "redis"
	EventsRabbitMQ = "rabbitmq"

	RevokeStrict  = "strict"
	RevokeLenient = "lenient"

	// DefaultPath 为未设置 PROOFBENCH_CONFIG 时尝试读取的配置文件。
	DefaultPath = "configs/proofbench.json"
)

// Config 描述了 ProofBench 在启动阶段需要加载的核心配置。
type Config struct {
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
	Auth      AuthConfig      `json:"auth"`
	Network   NetworkConfig   `json:"network"`
	Benchmark BenchmarkConfig `json:"benchmark"`
	Consent   ConsentConfig   `json:"consent"`
	Storage   StorageConfig   `json:"storage"`
	Events    EventsConfig    `json:"events"`
	Alerting  AlertingConfig  `json:"alerting"`
}

// ServerConfig 控制 API 服务的监听地址与运行环境。
type ServerConfig struct {
	Address                string `json:"address"`
	Environment            string `json:"environment"`
	ReadTimeoutSeconds     int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `json:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds"`
	MaxRequestBodyBytes    int64  `json:"max_request_body_bytes"`
}

// LoggingConfig 对应 pkg/logger 的配置。
type LoggingConfig struct {
	Level       string      `json:"level"`
	Format      string      `json:"format"`
	OutputPaths []string    `json:"output_paths"`
	Audit       AuditConfig `json:"audit"`
}

// AuditConfig 控制审计日志文件的滚动策略。
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// AuthConfig 描述挑战应答与 Bearer Token 的参数。
type AuthConfig struct {
	JWTSecret            string `json:"jwt_secret"`
	Issuer               string `json:"issuer"`
	TokenTTLSeconds      int    `json:"token_ttl_seconds"`
	ChallengeTTLSeconds  int    `json:"challenge_ttl_seconds"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
	VerifySignatures     bool   `json:"verify_signatures"`
}

// NetworkConfig 选择网络适配器。
type NetworkConfig struct {
	Mode                    string `json:"mode"`
	Strict                  *bool  `json:"strict"`
	Definitions             string `json:"definitions"`
	Network                 string `json:"network"`
	RPCURL                  string `json:"rpc_url"`
	ContractAddress         string `json:"contract_address"`
	APIKey                  string `json:"api_key"`
	TimeoutSeconds          int    `json:"timeout_seconds"`
	SynthesizeUnknownProofs bool   `json:"synthesize_unknown_proofs"`
}

// BenchmarkConfig 指定参考分布来源。
type BenchmarkConfig struct {
	ReferenceData   string `json:"reference_data"`
	DefaultIndustry string `json:"default_industry"`
}

// ConsentConfig 控制撤销语义。
type ConsentConfig struct {
	RevokePolicy string `json:"revoke_policy"`
}

// StorageConfig 统一描述 MySQL、Redis 等后端的连接信息。
type StorageConfig struct {
	Proofs     StoreConfig `json:"proofs"`
	Consents   StoreConfig `json:"consents"`
	Challenges StoreConfig `json:"challenges"`
}

// StoreConfig 描述单个存储的驱动。
type StoreConfig struct {
	Driver string      `json:"driver"`
	DSN    string      `json:"dsn"`
	Redis  RedisConfig `json:"redis"`
}

// RedisConfig 为 Redis 存储与事件发布共用的连接参数。
type RedisConfig struct {
	Address  string `json:"address"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// EventsConfig 控制同意书生命周期事件的发布方式。
type EventsConfig struct {
	Driver   string         `json:"driver"`
	Redis    RedisConfig    `json:"redis"`
	Channel  string         `json:"channel"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RabbitMQConfig 描述 AMQP 连接。
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
}

// AlertingConfig 控制告警通知渠道。
type AlertingConfig struct {
	Enabled  bool     `json:"enabled"`
	Webhooks []string `json:"webhooks"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	return &cfg, nil
}

// Default 返回仅包含默认值的配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// FromEnvironment 按 PROOFBENCH_CONFIG 加载配置并应用环境变量覆盖。
// 未显式指定且默认文件不存在时使用内置默认值。
func FromEnvironment() (*Config, error) {
	return fromEnvironment(os.Getenv)
}

func fromEnvironment(getenv func(string) string) (*Config, error) {
	path := getenv("PROOFBENCH_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg *Config
	if _, err := os.Stat(path); err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.applyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(key string, target *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*target = v
		}
	}
	set("PROOFBENCH_ENV", &c.Server.Environment)
	set("PROOFBENCH_ADDR", &c.Server.Address)
	set("PROOFBENCH_JWT_SECRET", &c.Auth.JWTSecret)
	set("PROOFBENCH_NETWORK_MODE", &c.Network.Mode)
	set("PROOFBENCH_NETWORK_RPC_URL", &c.Network.RPCURL)
	set("PROOFBENCH_NETWORK_CONTRACT", &c.Network.ContractAddress)
	set("PROOFBENCH_NETWORK_API_KEY", &c.Network.APIKey)
	c.Server.Environment = strings.ToLower(c.Server.Environment)
	c.Network.Mode = strings.ToLower(c.Network.Mode)
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":3001"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = EnvDevelopment
	}
	c.Server.Environment = strings.ToLower(c.Server.Environment)
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 30
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.Server.MaxRequestBodyBytes <= 0 {
		c.Server.MaxRequestBodyBytes = 1 << 20
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path == "" {
		c.Logging.Audit.Path = filepath.Join(baseDir, "logs", "audit.log")
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "proofbench"
	}
	if c.Auth.TokenTTLSeconds <= 0 {
		c.Auth.TokenTTLSeconds = 3600
	}
	if c.Auth.ChallengeTTLSeconds <= 0 {
		c.Auth.ChallengeTTLSeconds = 300
	}
	if c.Auth.SweepIntervalSeconds <= 0 {
		c.Auth.SweepIntervalSeconds = 60
	}

	if c.Network.Mode == "" {
		c.Network.Mode = ModeMock
	}
	c.Network.Mode = strings.ToLower(c.Network.Mode)
	if c.Network.TimeoutSeconds <= 0 {
		c.Network.TimeoutSeconds = 10
	}
	c.Network.Definitions = resolve(baseDir, c.Network.Definitions)

	if c.Benchmark.DefaultIndustry == "" {
		c.Benchmark.DefaultIndustry = "saas"
	}
	c.Benchmark.ReferenceData = resolve(baseDir, c.Benchmark.ReferenceData)

	if c.Consent.RevokePolicy == "" {
		c.Consent.RevokePolicy = RevokeStrict
	}

	for _, store := range []*StoreConfig{&c.Storage.Proofs, &c.Storage.Consents, &c.Storage.Challenges} {
		if store.Driver == "" {
			store.Driver = DriverMemory
		}
		if store.Redis.Address == "" && store.Driver == DriverRedis {
			store.Redis.Address = "127.0.0.1:6379"
		}
	}

	if c.Events.Driver == "" {
		c.Events.Driver = EventsNoop
	}
	if c.Events.Channel == "" {
		c.Events.Channel = "proofbench:consent-events"
	}
	if c.Events.RabbitMQ.Exchange == "" {
		c.Events.RabbitMQ.Exchange = "proofbench.consent"
	}
	if c.Events.RabbitMQ.RoutingKey == "" {
		c.Events.RabbitMQ.RoutingKey = "proofbench"
	}
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate 校验互斥选项与生产环境必填项。
func (c *Config) Validate() error {
	var errs []error
	switch c.Server.Environment {
	case EnvDevelopment, EnvProduction, "test":
	default:
		errs = append(errs, fmt.Errorf("未知运行环境 %q", c.Server.Environment))
	}
	switch c.Network.Mode {
	case ModeMock, ModeReal:
	default:
		errs = append(errs, fmt.Errorf("未知网络模式 %q", c.Network.Mode))
	}
	switch c.Consent.RevokePolicy {
	case RevokeStrict, RevokeLenient:
	default:
		errs = append(errs, fmt.Errorf("未知撤销策略 %q", c.Consent.RevokePolicy))
	}
	errs = append(errs,
		checkDriver("storage.proofs", c.Storage.Proofs, DriverMemory, DriverMySQL, DriverRedis),
		checkDriver("storage.consents", c.Storage.Consents, DriverMemory, DriverMySQL),
		checkDriver("storage.challenges", c.Storage.Challenges, DriverMemory, DriverRedis),
	)
	switch c.Events.Driver {
	case EventsNoop, EventsMemory:
	case EventsRedis:
		if c.Events.Redis.Address == "" {
			errs = append(errs, errors.New("events.redis.address 不能为空"))
		}
	case EventsRabbitMQ:
		if c.Events.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("events.rabbitmq.url 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知事件驱动 %q", c.Events.Driver))
	}
	if c.IsProduction() && strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("生产环境必须配置 auth.jwt_secret"))
	}
	return errors.Join(errs...)
}

func checkDriver(name string, store StoreConfig, allowed ...string) error {
	for _, driver := range allowed {
		if store.Driver != driver {
			continue
		}
		if driver == DriverMySQL && store.DSN == "" {
			return fmt.Errorf("%s.dsn 不能为空", name)
		}
		return nil
	}
	return fmt.Errorf("%s 不支持驱动 %q", name, store.Driver)
}

// IsProduction 判断是否运行在生产环境。
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// StrictNetwork 返回真实适配器探测失败时是否直接终止启动。
// 未显式配置时生产环境为 true。
func (c *Config) StrictNetwork() bool {
	if c.Network.Strict != nil {
		return *c.Network.Strict
	}
	return c.IsProduction()
}
