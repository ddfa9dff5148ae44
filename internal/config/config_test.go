package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadEffective_DefaultsWithoutFile(t *testing.T) {
	cwd := t.TempDir()

	eff, err := load(cwd, CLIArgs{}, noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" {
		t.Fatalf("未读取配置文件时 ConfigPath 应为空：%q", eff.ConfigPath)
	}
	if eff.Profile != "full" || eff.Rules.MaxPerformers != 15 {
		t.Fatalf("默认 profile 不符合预期：%q %d", eff.Profile, eff.Rules.MaxPerformers)
	}
	if eff.FetchTimeout != DefaultFetchTimeout || eff.Concurrency != DefaultConcurrency || eff.Addr != DefaultAddr {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.DSN != filepath.Join(cwd, DefaultDSN) {
		t.Fatalf("DSN 应以 cwd 为基准：%q", eff.DSN)
	}
	if eff.TaskBackend != "memory" || !eff.CacheEnabled || eff.AllowReset {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if len(eff.FetchOrder) != 2 || eff.FetchOrder[0] != "http" || eff.FetchOrder[1] != "cache" {
		t.Fatalf("fetch.order 默认值不符合预期：%v", eff.FetchOrder)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := load(cwd, CLIArgs{ConfigPath: "missing.yaml"}, noEnv)
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_InvalidYAML(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte("extract: [\n"))

	_, err := load(cwd, CLIArgs{}, noEnv)
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_FileValues(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`
log:
  level: debug
  format: json
fetch:
  timeout: 5s
  user_agent: culturelog-test/1.0
  order: [cache, http]
extract:
  profile: compact
  max_prices: 3
  price_min: 500
  extra_venues: [부천아트센터]
scrape:
  concurrency: 100
server:
  addr: 127.0.0.1:8080
  allow_reset: true
tasks:
  backend: redis
  redis_addr: 127.0.0.1:6379
  ttl: 10m
`))

	eff, err := load(cwd, CLIArgs{}, noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != filepath.Join(cwd, DefaultFileName) {
		t.Fatalf("ConfigPath 不符合预期：%q", eff.ConfigPath)
	}
	if eff.LogLevel != "debug" || eff.LogFormat != "json" {
		t.Fatalf("log 不符合预期：%q %q", eff.LogLevel, eff.LogFormat)
	}
	if eff.FetchTimeout != 5*time.Second || eff.FetchOrder[0] != "cache" {
		t.Fatalf("fetch 不符合预期：%v %v", eff.FetchTimeout, eff.FetchOrder)
	}
	if eff.UserAgent != "culturelog-test/1.0" {
		t.Fatalf("user_agent 不符合预期：%q", eff.UserAgent)
	}
	if eff.Profile != "compact" || eff.Rules.MaxPrices != 3 || eff.Rules.PriceMin != 500 || eff.Rules.MaxPerformers != 12 {
		t.Fatalf("extract 不符合预期：%q %+v", eff.Profile, eff.Rules)
	}
	if eff.Rules.Venues[len(eff.Rules.Venues)-1] != "부천아트센터" {
		t.Fatalf("extra_venues 未生效：%v", eff.Rules.Venues)
	}
	if eff.Concurrency != 32 {
		t.Fatalf("concurrency 应截断为 32，实际 %d", eff.Concurrency)
	}
	if eff.Addr != "127.0.0.1:8080" || !eff.AllowReset {
		t.Fatalf("server 不符合预期：%q %v", eff.Addr, eff.AllowReset)
	}
	if eff.TaskBackend != "redis" || eff.RedisAddr != "127.0.0.1:6379" || eff.TaskTTL != 10*time.Minute {
		t.Fatalf("tasks 不符合预期：%+v", eff)
	}
}

func TestLoadEffective_MergeOrder(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte("extract:\n  profile: compact\nserver:\n  addr: \":7000\"\n"))

	// env 覆盖文件。
	eff, err := load(cwd, CLIArgs{}, envMap(map[string]string{"CULTURELOG_PROFILE": "full"}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Profile != "full" || eff.Addr != ":7000" {
		t.Fatalf("期望 profile=full addr=:7000，实际 %q %q", eff.Profile, eff.Addr)
	}

	// CLI 覆盖 env。
	eff, err = load(cwd, CLIArgs{Profile: "compact", ProfileSet: true, Addr: ":9000", AddrSet: true},
		envMap(map[string]string{"CULTURELOG_PROFILE": "full"}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Profile != "compact" || eff.Addr != ":9000" {
		t.Fatalf("期望 CLI 生效，实际 %q %q", eff.Profile, eff.Addr)
	}
}

func TestLoadEffective_DotEnvSupplementsProcessEnv(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, ".env"), []byte("CULTURELOG_ADDR=:6000\nCULTURELOG_PROFILE=compact\n"))

	eff, err := load(cwd, CLIArgs{}, envMap(map[string]string{"CULTURELOG_PROFILE": "full"}))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != ":6000" {
		t.Fatalf(".env 应补充未设置的变量：%q", eff.Addr)
	}
	if eff.Profile != "full" {
		t.Fatalf("进程环境变量应优先于 .env：%q", eff.Profile)
	}
}

func TestLoadEffective_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"profile":       "extract:\n  profile: nope\n",
		"backend":       "tasks:\n  backend: etcd\n",
		"redis addr":    "tasks:\n  backend: redis\n",
		"timeout":       "fetch:\n  timeout: soon\n",
		"order":         "fetch:\n  order: [ftp]\n",
		"log level":     "log:\n  level: loud\n",
		"price range":   "extract:\n  price_min: 5000\n  price_max: 10\n",
		"invalid proxy": "fetch:\n  proxy_url: \"http://[::1\"\n",
	}
	for name, content := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(content))

		_, err := load(cwd, CLIArgs{}, noEnv)
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s: 期望 %q，实际 err=%v (code=%q)", name, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestLoadEffective_NoCacheFlag(t *testing.T) {
	cwd := t.TempDir()

	eff, err := load(cwd, CLIArgs{NoCache: true, NoCacheSet: true}, noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.CacheEnabled {
		t.Fatalf("--no-cache 应关闭缓存")
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}

func TestLoadEffective_PriceMinZero(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte("extract:\n  price_min: 0\n"))

	eff, err := load(cwd, CLIArgs{}, noEnv)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Rules.PriceMin != 0 || eff.Rules.PriceMax != 1000000 {
		t.Fatalf("price_min: 0 应生效：[%d,%d]", eff.Rules.PriceMin, eff.Rules.PriceMax)
	}
}
