package infrastructure_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/adherence/internal/config"
	"github.com/JaimeStill/adherence/internal/infrastructure"
	"github.com/JaimeStill/adherence/pkg/database"
	"github.com/JaimeStill/adherence/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "adherence",
			User:            "adherence",
			Password:        "adherence",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "sessions",
			ConnectionString: azuriteConnString,
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
	if infra.Telemetry == nil {
		t.Error("Telemetry is nil")
	}
	if err := infra.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not-a-connection-string"

	_, err := infrastructure.New(cfg)
	if err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adherence.log")

	logger, closer := infrastructure.NewLogger(&config.LoggingConfig{
		Level:     "info",
		Format:    "json",
		File:      path,
		MaxSizeMB: 1,
	})
	if closer == nil {
		t.Fatal("file logger returned nil closer")
	}

	logger.Debug("suppressed")
	logger.Info("session saved", "session_id", "S_P001_20240501090000")

	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, `"msg":"session saved"`) {
		t.Errorf("log missing json record: %s", out)
	}
	if strings.Contains(out, "suppressed") {
		t.Error("debug record written at info level")
	}
}

func TestNewLoggerStderr(t *testing.T) {
	logger, closer := infrastructure.NewLogger(&config.LoggingConfig{Level: "info", Format: "text"})
	if logger == nil {
		t.Fatal("logger is nil")
	}
	if closer != nil {
		t.Error("stderr logger should not return a closer")
	}
}
