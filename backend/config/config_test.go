package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeYAML(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望端口 8080，实际 %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("期望驱动 postgres，实际 %s", cfg.Database.Driver)
	}
	if cfg.Normalizer.Concurrency != 4 {
		t.Errorf("期望并发 4，实际 %d", cfg.Normalizer.Concurrency)
	}
	if cfg.Normalizer.LockTTL != 3*time.Minute {
		t.Errorf("期望锁 TTL 3m，实际 %s", cfg.Normalizer.LockTTL)
	}
	if cfg.Redis.Enabled() {
		t.Error("未配置 redis.addr 时不应启用 Redis")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("期望日志级别 debug，实际 %s", cfg.Log.Level)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	p := writeYAML(t, `
db:
  driver: sqlite
  path: ":memory:"
normalizer:
  job_enabled: true
  job_interval: 30m
  scopes:
    - ay: "2025-26"
      degree: BTECH
      year: 2
      term: 1
      division: A
`)
	t.Setenv("TT_SERVER_PORT", "9090")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("环境变量应覆盖默认端口，实际 %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != ":memory:" {
		t.Errorf("sqlite 配置未生效: %+v", cfg.Database)
	}
	if cfg.Normalizer.JobInterval != 30*time.Minute {
		t.Errorf("期望 30m，实际 %s", cfg.Normalizer.JobInterval)
	}
	if len(cfg.Normalizer.Scopes) != 1 || cfg.Normalizer.Scopes[0].DivisionCode != "A" {
		t.Errorf("作用域解析错误: %+v", cfg.Normalizer.Scopes)
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	if _, err := Load(writeYAML(t, "db:\n  driver: mysql\n")); err == nil {
		t.Error("期望不支持的驱动返回错误")
	}
}

func TestAuthConfig_Validate(t *testing.T) {
	tests := []struct {
		secret  string
		wantErr bool
	}{
		{"", true},
		{"short", true},
		{"a-long-enough-secret-key", false},
	}
	for _, tt := range tests {
		c := AuthConfig{JWTSecret: tt.secret}
		if err := c.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("secret=%q: 期望 err=%v，实际 %v", tt.secret, tt.wantErr, err)
		}
	}
}

func TestLoad_LockTTLMustOutliveOperation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"默认值", "", false},
		{"TTL 为 0", "normalizer:\n  lock_ttl: 0s\n", true},
		{"TTL 等于两倍超时", "normalizer:\n  lock_ttl: 2m\n  operation_timeout: 1m\n", true},
		{"TTL 小于超时", "normalizer:\n  lock_ttl: 30s\n  operation_timeout: 1m\n", true},
		{"超时为 0", "normalizer:\n  lock_ttl: 5m\n  operation_timeout: 0s\n", true},
		{"TTL 充足", "normalizer:\n  lock_ttl: 5m\n  operation_timeout: 2m\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeYAML(t, "log:\n  level: info\n"+tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Errorf("期望 err=%v，实际 %v", tt.wantErr, err)
			}
		})
	}
}
