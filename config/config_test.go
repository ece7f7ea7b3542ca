package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"PORT", "ENVIRONMENT", "STORAGE_DRIVER", "MAX_UPLOAD_KB", "JWT_TTL", "AUTH_REQUIRED", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("port = %q", cfg.ServerPort)
	}
	if cfg.StorageDriver != StorageLocal {
		t.Errorf("storage driver = %q", cfg.StorageDriver)
	}
	if cfg.MaxUploadKB != 2048 {
		t.Errorf("max upload = %d", cfg.MaxUploadKB)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Errorf("jwt ttl = %s", cfg.JWTTTL)
	}
	if cfg.AuthRequired {
		t.Errorf("auth must be off by default")
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"*"}) {
		t.Errorf("cors origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_UPLOAD_KB", "512")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != "9090" || cfg.MaxUploadKB != 512 || !cfg.AuthRequired {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Fatalf("cors origins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"bad driver":          {"STORAGE_DRIVER": "ftp"},
		"cloudinary no url":   {"STORAGE_DRIVER": "cloudinary", "CLOUDINARY_URL": ""},
		"bad ttl":             {"JWT_TTL": "forever"},
		"default prod secret": {"ENVIRONMENT": "production", "JWT_SECRET": ""},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
