package app

import (
	"os"
	"testing"

	_ "github.com/webstore/webstore/internal/testing/guard"
)

func TestInTestMode(t *testing.T) {
	t.Setenv("WEBSTORE_TEST_MODE", "1")
	RefreshTestMode()
	if !InTestMode() {
		t.Fatal("InTestMode() = false with WEBSTORE_TEST_MODE=1")
	}

	os.Unsetenv("WEBSTORE_TEST_MODE")
	RefreshTestMode()
	if InTestMode() {
		t.Fatal("InTestMode() = true without WEBSTORE_TEST_MODE")
	}
	t.Setenv("WEBSTORE_TEST_MODE", "1")
	RefreshTestMode()
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppAddr != ":5000" {
		t.Fatalf("AppAddr = %q, want :5000", cfg.AppAddr)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.IsProduction() {
		t.Fatal("development config reports production")
	}
}
