package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/apicontract"
	"github.com/loykin/apicontract/internal/common"
	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/pkg/executor"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestConfigDoc_Load(t *testing.T) {
	p := writeConfig(t, `
suite_dir: ./contracts
base_uri: http://api.test
base_path: /v1
timeout: 5s
follow_redirects: false
default_headers:
  Accept: application/json
env:
  - name: user
    value: ann
  - name: token
    valueFromEnv: APICONTRACT_TEST_TOKEN
client:
  insecure: true
  min_tls_version: "1.2"
logging:
  level: debug
  format: json
store:
  type: sqlite
  sqlite:
    path: runs.db
  table_prefix: ci
properties_file: out.properties
`)
	t.Setenv("APICONTRACT_TEST_TOKEN", "s3cret")

	var doc ConfigDoc
	if err := doc.Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.SuiteDirectory() != "./contracts" || doc.PropertiesFile != "out.properties" {
		t.Fatalf("doc: %+v", doc)
	}

	cfg, err := doc.ExecutorConfig()
	if err != nil {
		t.Fatalf("ExecutorConfig: %v", err)
	}
	if cfg.BaseURI != "http://api.test" || cfg.BasePath != "/v1" || cfg.Timeout != 5*time.Second {
		t.Fatalf("executor config: %+v", cfg)
	}
	if cfg.RedirectPolicy != executor.NoRedirects || !cfg.Insecure || cfg.MinTLSVersion != "1.2" {
		t.Fatalf("client settings: %+v", cfg)
	}
	if v, ok := cfg.Defaults.Headers().First("Accept"); !ok || v != "application/json" {
		t.Fatalf("default header Accept = %q (%v)", v, ok)
	}

	e, err := doc.GetEnv()
	if err != nil {
		t.Fatalf("GetEnv: %v", err)
	}
	if v, _ := e.Lookup("token"); v != "s3cret" {
		t.Fatalf("token = %q", v)
	}
	if v, _ := e.Lookup("base_uri"); v != "http://api.test" {
		t.Fatalf("base_uri = %q", v)
	}
	if err := e.SetString("global", "token", "other"); err == nil {
		t.Fatalf("config env should be sealed")
	}
	if err := e.Clone().SetString("global", "token", "other"); err != nil {
		t.Fatalf("clone should be writable: %v", err)
	}

	sc := doc.Store.ToStoreConfig()
	if sc == nil || sc.Driver != apicontract.DriverSqlite || sc.TableNames.Runs != "ci_runs" {
		t.Fatalf("store config: %+v", sc)
	}
	if sq, ok := sc.DriverConfig.(*apicontract.SqliteConfig); !ok || sq.Path != "runs.db" {
		t.Fatalf("sqlite config: %#v", sc.DriverConfig)
	}
}

func TestConfigDoc_EnvOverride(t *testing.T) {
	p := writeConfig(t, "base_uri: http://from-file\n")
	t.Setenv("APICONTRACT_BASE_URI", "http://from-env")
	var doc ConfigDoc
	if err := doc.Load(p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.BaseURI != "http://from-env" {
		t.Fatalf("base_uri = %q", doc.BaseURI)
	}
}

func TestConfigDoc_Defaults(t *testing.T) {
	var doc ConfigDoc
	cfg, err := doc.ExecutorConfig()
	if err != nil {
		t.Fatalf("ExecutorConfig: %v", err)
	}
	if cfg.Timeout != constants.DefaultRequestTimeout || cfg.RedirectPolicy != executor.FollowRedirects {
		t.Fatalf("defaults: %+v", cfg)
	}
	if doc.SuiteDirectory() != constants.DefaultSuiteDir {
		t.Fatalf("suite dir = %q", doc.SuiteDirectory())
	}
	if doc.Store.ToStoreConfig() != nil {
		t.Fatalf("store must be off without a type")
	}
	doc.Timeout = "soon"
	if _, err := doc.ExecutorConfig(); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestConfigDoc_Load_Errors(t *testing.T) {
	var doc ConfigDoc
	if err := doc.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if err := doc.Load(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestStoreConfig_Postgres(t *testing.T) {
	sc := (&StoreConfig{Type: "postgres", Postgres: PostgresStoreConfig{Host: " db ", User: "u", DBName: "contracts"}}).ToStoreConfig()
	if sc == nil || sc.Driver != apicontract.DriverPostgres {
		t.Fatalf("store config: %+v", sc)
	}
	pg, ok := sc.DriverConfig.(*apicontract.PostgresConfig)
	if !ok || pg.Host != "db" || pg.DBName != "contracts" {
		t.Fatalf("postgres config: %#v", sc.DriverConfig)
	}
	if (&StoreConfig{Type: "sqlite", Disabled: true}).ToStoreConfig() != nil {
		t.Fatalf("disabled store must be nil")
	}
	def := (&StoreConfig{Type: "sqlite"}).ToStoreConfig()
	if sq := def.DriverConfig.(*apicontract.SqliteConfig); sq.Path != apicontract.StoreDBFileName {
		t.Fatalf("default sqlite path = %q", sq.Path)
	}
}

func TestSetupLogging(t *testing.T) {
	prev := apicontract.GetLogger()
	t.Cleanup(func() { apicontract.SetDefaultLogger(prev) })

	for _, lc := range []LoggingConfig{{}, {Level: "warn", Format: "json"}, {Format: "color"}} {
		doc := ConfigDoc{Logging: lc}
		if err := doc.SetupLogging(); err != nil {
			t.Fatalf("%+v: %v", lc, err)
		}
	}
	for _, lc := range []LoggingConfig{{Level: "loud"}, {Format: "xml"}} {
		doc := ConfigDoc{Logging: lc}
		if err := doc.SetupLogging(); err == nil {
			t.Fatalf("%+v: expected error", lc)
		}
	}
}

func TestSetupLogging_MaskKeys(t *testing.T) {
	prev := apicontract.GetLogger()
	t.Cleanup(func() { apicontract.SetDefaultLogger(prev) })

	off := false
	doc := ConfigDoc{Logging: LoggingConfig{Format: "color", Color: &off, MaskKeys: []string{"X-Tenant-Key"}}}
	if err := doc.SetupLogging(); err != nil {
		t.Fatalf("SetupLogging: %v", err)
	}
	if got := common.GetGlobalMasker().MaskHeader("x-tenant-key", "t-123"); got != common.MaskedValue {
		t.Fatalf("custom key not masked: %q", got)
	}
}
