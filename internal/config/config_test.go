package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"BX24_SDK_URL",
		"BX24_DEV",
		"BX24_HEADLESS",
		"BX24_TIMEOUT",
		"BX24_DOMAIN",
		"BX24_AUTH_ID",
		"BX24_REFRESH_ID",
		"BX24_MEMBER_ID",
		"BX24_CLIENT_ENDPOINT",
		"BX24_AUTH_EXPIRES",
		"BX24_CLIENT_ID",
		"BX24_CLIENT_SECRET",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestNew_Defaults(t *testing.T) {
	setEnvEmpty(t)
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	cfg, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Dir != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("Dir = %q", cfg.Dir)
	}
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if cfg.SDKURL != DefaultSDKURL || cfg.Timeout != DefaultTimeout {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.DevelopmentMode != developmentBuild {
		t.Errorf("DevelopmentMode = %v, want build default %v", cfg.DevelopmentMode, developmentBuild)
	}
	if cfg.Auth != nil {
		t.Errorf("expected no ambient auth, got %+v", cfg.Auth)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	setEnvEmpty(t)
	t.Setenv("BX24_SDK_URL", "http://localhost:8089/api/v1/")
	t.Setenv("BX24_DEV", "yes")
	t.Setenv("BX24_HEADLESS", "0")
	t.Setenv("BX24_TIMEOUT", "5s")
	t.Setenv("BX24_AUTH_ID", " tok ")
	t.Setenv("BX24_DOMAIN", "portal.bitrix24.ru")
	t.Setenv("BX24_MEMBER_ID", "m1")
	t.Setenv("BX24_AUTH_EXPIRES", "3600")

	cfg, _ := New(t.TempDir())
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if cfg.SDKURL != "http://localhost:8089/api/v1/" {
		t.Errorf("SDKURL = %q", cfg.SDKURL)
	}
	if !cfg.DevelopmentMode || cfg.Headless {
		t.Errorf("unexpected flags dev=%v headless=%v", cfg.DevelopmentMode, cfg.Headless)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Auth == nil || cfg.Auth.AccessToken != "tok" || cfg.Auth.Domain != "portal.bitrix24.ru" || cfg.Auth.ExpiresIn != 3600 {
		t.Errorf("unexpected auth %+v", cfg.Auth)
	}
}

func TestLoadEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"BX24_DEV", "maybe"},
		{"BX24_TIMEOUT", "soon"},
		{"BX24_TIMEOUT", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setEnvEmpty(t)
			t.Setenv(tt.key, tt.value)
			cfg, _ := New(t.TempDir())
			if err := cfg.LoadEnv(); err == nil {
				t.Errorf("expected an error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestHostAuth_File(t *testing.T) {
	setEnvEmpty(t)
	cfg, _ := New(t.TempDir())

	auth, err := cfg.HostAuth()
	if err != nil || auth != nil {
		t.Fatalf("expected no auth, got %+v, %v", auth, err)
	}

	data := []byte(`{"domain":"portal.test","access_token":"file_tok","member_id":"m"}`)
	if err := os.WriteFile(cfg.AuthPath(), data, 0600); err != nil {
		t.Fatal(err)
	}
	auth, err = cfg.HostAuth()
	if err != nil {
		t.Fatalf("HostAuth() error = %v", err)
	}
	if auth.AccessToken != "file_tok" {
		t.Errorf("unexpected auth %+v", auth)
	}

	if err := os.WriteFile(cfg.AuthPath(), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.HostAuth(); err == nil {
		t.Error("expected an error for a malformed credentials file")
	}
}
