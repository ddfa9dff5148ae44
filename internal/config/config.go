package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/culturelog/internal/extract"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultFileName 是 cwd 下自动发现的配置文件名（可选）。
	DefaultFileName = "culturelog.yaml"

	DefaultConcurrency  = 4
	DefaultFetchTimeout = 15 * time.Second
	DefaultAddr         = ":5000"
	DefaultDSN          = "culture_logs.db"
	DefaultUploadDir    = "uploads"
	DefaultThumbDir     = "thumbnails"
	DefaultCacheDir     = ".culturelog/cache"
	DefaultTaskTTL      = time.Hour

	envPrefix = "CULTURELOG_"
)

// CLIArgs 是 CLI 暴露的覆盖项，保留“是否显式指定”的信息，
// 这样 --allow-reset=false 之类的值也能覆盖配置文件。
type CLIArgs struct {
	ConfigPath string

	Profile    string
	ProfileSet bool

	Addr    string
	AddrSet bool

	LogLevel    string
	LogLevelSet bool

	Concurrency    int
	ConcurrencySet bool

	NoCache    bool
	NoCacheSet bool
}

// FileConfig 对应 culturelog.yaml 的解析结构。
type FileConfig struct {
	Log     LogConfig     `yaml:"log"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Cache   CacheConfig   `yaml:"cache"`
	Extract ExtractConfig `yaml:"extract"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Photos  PhotosConfig  `yaml:"photos"`
	Tasks   TasksConfig   `yaml:"tasks"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type FetchConfig struct {
	Timeout   string   `yaml:"timeout"` // 例如 "15s"
	ProxyURL  string   `yaml:"proxy_url"`
	UserAgent string   `yaml:"user_agent"` // 为空时从内置 UA 池随机
	Order     []string `yaml:"order"`
}

type CacheConfig struct {
	Dir     string `yaml:"dir"`
	Enabled *bool  `yaml:"enabled"`
}

type ExtractConfig struct {
	Profile        string   `yaml:"profile"`
	MaxPerformers  int      `yaml:"max_performers"`
	MaxProgram     int      `yaml:"max_program"`
	MaxPrices      int      `yaml:"max_prices"`
	PriceMin       *int64   `yaml:"price_min"`
	PriceMax       *int64   `yaml:"price_max"`
	ExtraVenues    []string `yaml:"extra_venues"`
	ExtraComposers []string `yaml:"extra_composers"`
}

type ScrapeConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	AllowReset  bool     `yaml:"allow_reset"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

type PhotosConfig struct {
	UploadDir string `yaml:"upload_dir"`
	ThumbDir  string `yaml:"thumb_dir"`
}

type TasksConfig struct {
	Backend   string `yaml:"backend"` // memory | redis
	RedisAddr string `yaml:"redis_addr"`
	TTL       string `yaml:"ttl"`
}

// EffectiveConfig 是合并并规范化后的最终配置；实现层直接消费，不再做默认值判断。
type EffectiveConfig struct {
	ConfigPath string // 实际读取的配置文件；未读取为空

	LogLevel  string
	LogFormat string

	FetchTimeout time.Duration
	ProxyURL     string
	UserAgent    string
	FetchOrder   []string

	CacheDir     string
	CacheEnabled bool

	Profile string
	Rules   extract.Rules

	Concurrency int

	Addr        string
	AllowReset  bool
	CORSOrigins []string

	DSN string

	UploadDir string
	ThumbDir  string

	TaskBackend string
	RedisAddr   string
	TaskTTL     time.Duration
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/culturelog.yaml（可选）
// 3) <cwd>/.env 中的 CULTURELOG_* 变量作为进程环境变量的补充（进程环境优先）
//
// 覆盖优先级：CLI > 环境变量 > 配置文件 > 内置默认值
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	return load(cwd, cli, os.LookupEnv)
}

func load(cwd string, cli CLIArgs, lookupEnv func(string) (string, bool)) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	dotenv, err := readDotEnv(filepath.Join(cwdAbs, ".env"))
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: filepath.Join(cwdAbs, ".env"), Err: err}
	}
	env := func(key string) string {
		if v, ok := lookupEnv(envPrefix + key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[envPrefix+key])
	}

	cfgPath := filepath.Join(cwdAbs, DefaultFileName)
	required := false
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		required = true
	} else if p := env("CONFIG"); p != "" {
		cfgPath = absCleanFrom(cwdAbs, p)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && required {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}

	eff, err := merge(cwdAbs, cli, env, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

func merge(cwdAbs string, cli CLIArgs, env func(string) string, fc FileConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{}

	// log：CLI > env > file > 默认 info/console
	eff.LogLevel = firstNonEmpty(env("LOG_LEVEL"), fc.Log.Level, "info")
	if cli.LogLevelSet {
		eff.LogLevel = cli.LogLevel
	}
	eff.LogLevel = strings.ToLower(strings.TrimSpace(eff.LogLevel))
	if _, err := zerolog.ParseLevel(eff.LogLevel); err != nil {
		return EffectiveConfig{}, fmt.Errorf("log.level 无效：%q", eff.LogLevel)
	}
	eff.LogFormat = strings.ToLower(firstNonEmpty(env("LOG_FORMAT"), fc.Log.Format, "console"))
	if eff.LogFormat != "console" && eff.LogFormat != "json" {
		return EffectiveConfig{}, fmt.Errorf("log.format 只能是 console 或 json，实际是 %q", eff.LogFormat)
	}

	// fetch
	timeout, err := parseDuration(firstNonEmpty(env("FETCH_TIMEOUT"), fc.Fetch.Timeout), DefaultFetchTimeout)
	if err != nil {
		return EffectiveConfig{}, fmt.Errorf("fetch.timeout 无效：%w", err)
	}
	eff.FetchTimeout = timeout

	eff.ProxyURL = firstNonEmpty(env("PROXY_URL"), fc.Fetch.ProxyURL)
	if eff.ProxyURL != "" {
		if _, err := url.Parse(eff.ProxyURL); err != nil {
			return EffectiveConfig{}, fmt.Errorf("fetch.proxy_url 无效：%w", err)
		}
	}

	eff.UserAgent = firstNonEmpty(env("USER_AGENT"), fc.Fetch.UserAgent)

	eff.FetchOrder = []string{"http", "cache"}
	if len(fc.Fetch.Order) > 0 {
		eff.FetchOrder = make([]string, 0, len(fc.Fetch.Order))
		for _, name := range fc.Fetch.Order {
			name = strings.ToLower(strings.TrimSpace(name))
			if name != "http" && name != "cache" {
				return EffectiveConfig{}, fmt.Errorf("fetch.order 只能包含 http/cache，实际是 %q", name)
			}
			eff.FetchOrder = append(eff.FetchOrder, name)
		}
	}

	// cache
	eff.CacheDir = absCleanFrom(cwdAbs, firstNonEmpty(env("CACHE_DIR"), fc.Cache.Dir, DefaultCacheDir))
	eff.CacheEnabled = true
	if fc.Cache.Enabled != nil {
		eff.CacheEnabled = *fc.Cache.Enabled
	}
	if cli.NoCacheSet {
		eff.CacheEnabled = !cli.NoCache
	}

	// extract：profile CLI > env > file > full
	eff.Profile = firstNonEmpty(env("PROFILE"), fc.Extract.Profile, extract.ProfileFull)
	if cli.ProfileSet {
		eff.Profile = cli.Profile
	}
	rules, err := extract.RulesFor(eff.Profile)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.Profile = rules.Profile
	eff.Rules = rules.With(extract.Overrides{
		MaxPerformers:  fc.Extract.MaxPerformers,
		MaxProgram:     fc.Extract.MaxProgram,
		MaxPrices:      fc.Extract.MaxPrices,
		PriceMin:       fc.Extract.PriceMin,
		PriceMax:       fc.Extract.PriceMax,
		ExtraVenues:    fc.Extract.ExtraVenues,
		ExtraComposers: fc.Extract.ExtraComposers,
	})
	if err := eff.Rules.Validate(); err != nil {
		return EffectiveConfig{}, fmt.Errorf("extract：%w", err)
	}

	// scrape.concurrency：范围 [1, 32]，超出截断。
	concurrency := fc.Scrape.Concurrency
	if v := env("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("%sCONCURRENCY 无效：%q", envPrefix, v)
		}
		concurrency = n
	}
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}
	eff.Concurrency = concurrency

	// server
	eff.Addr = firstNonEmpty(env("ADDR"), fc.Server.Addr, DefaultAddr)
	if cli.AddrSet {
		eff.Addr = strings.TrimSpace(cli.Addr)
	}
	if eff.Addr == "" {
		return EffectiveConfig{}, fmt.Errorf("server.addr 不能为空")
	}
	eff.AllowReset = fc.Server.AllowReset
	if v := env("ALLOW_RESET"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("%sALLOW_RESET 无效：%q", envPrefix, v)
		}
		eff.AllowReset = b
	}
	eff.CORSOrigins = []string{"*"}
	if len(fc.Server.CORSOrigins) > 0 {
		eff.CORSOrigins = append([]string(nil), fc.Server.CORSOrigins...)
	}

	// store / photos：相对路径以 cwd 为基准。
	eff.DSN = firstNonEmpty(env("DB"), fc.Store.DSN, DefaultDSN)
	if !strings.HasPrefix(eff.DSN, "file:") && eff.DSN != ":memory:" {
		eff.DSN = absCleanFrom(cwdAbs, eff.DSN)
	}
	eff.UploadDir = absCleanFrom(cwdAbs, firstNonEmpty(env("UPLOAD_DIR"), fc.Photos.UploadDir, DefaultUploadDir))
	eff.ThumbDir = absCleanFrom(cwdAbs, firstNonEmpty(env("THUMB_DIR"), fc.Photos.ThumbDir, DefaultThumbDir))

	// tasks
	eff.TaskBackend = strings.ToLower(firstNonEmpty(env("TASK_BACKEND"), fc.Tasks.Backend, "memory"))
	eff.RedisAddr = firstNonEmpty(env("REDIS_ADDR"), fc.Tasks.RedisAddr)
	switch eff.TaskBackend {
	case "memory":
	case "redis":
		if eff.RedisAddr == "" {
			return EffectiveConfig{}, fmt.Errorf("tasks.backend=redis 但 tasks.redis_addr 为空")
		}
	default:
		return EffectiveConfig{}, fmt.Errorf("tasks.backend 只能是 memory 或 redis，实际是 %q", eff.TaskBackend)
	}
	ttl, err := parseDuration(firstNonEmpty(env("TASK_TTL"), fc.Tasks.TTL), DefaultTaskTTL)
	if err != nil {
		return EffectiveConfig{}, fmt.Errorf("tasks.ttl 无效：%w", err)
	}
	eff.TaskTTL = ttl

	return eff, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("必须 > 0：%q", s)
	}
	return d, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件；exists 表示文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return godotenv.Read(path)
}
