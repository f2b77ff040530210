package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  driver: postgres
  host: db.internal
  port: 5432
  user: app
  password: secret
  name: hazards
  sslMode: require
minio:
  endpoint: minio:9000
  bucketName: site-images
openai:
  apiKey: sk-test
  model: gpt-4o
  timeoutSeconds: 45
auth:
  apiKeys:
    site-a: key-a
rateLimit:
  capacity: 20
  refillRate: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.OpenAI.Model != "gpt-4o" || cfg.OpenAI.TimeoutSeconds != 45 {
		t.Errorf("openai = %+v", cfg.OpenAI)
	}
	if cfg.Auth.APIKeys["site-a"] != "key-a" {
		t.Errorf("api keys = %v", cfg.Auth.APIKeys)
	}
	if cfg.RateLimit.Capacity != 20 || cfg.RateLimit.RefillRate != 5 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}

	want := "host=db.internal port=5432 user=app password=secret dbname=hazards sslmode=require"
	if got := cfg.PostgresDSN(); got != want {
		t.Errorf("PostgresDSN = %q, want %q", got, want)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  host: localhost
  port: 3306
  user: root
  name: hazards
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("driver = %q, want mysql default", cfg.Database.Driver)
	}
	if cfg.RateLimit.Capacity != 10 || cfg.RateLimit.RefillRate != 1 {
		t.Errorf("rate limit defaults = %+v", cfg.RateLimit)
	}
	want := "root:@tcp(localhost:3306)/hazards?parseTime=true&charset=utf8mb4&loc=UTC"
	if got := cfg.MySQLDSN(); got != want {
		t.Errorf("MySQLDSN = %q, want %q", got, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("want error for missing config file")
	}
}
