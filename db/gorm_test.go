package db

import (
	"testing"

	"AirgapFM/config"
)

func TestMysqlDSN(t *testing.T) {
	cfg := &config.Config{
		DBUser:     "fm",
		DBPassword: "secret",
		DBHost:     "db.local",
		DBPort:     "3307",
		DBName:     "airgapfm",
	}
	want := "fm:secret@tcp(db.local:3307)/airgapfm?charset=utf8mb4&parseTime=True&loc=UTC"
	if got := mysqlDSN(cfg); got != want {
		t.Errorf("mysqlDSN = %q, want %q", got, want)
	}
}

func TestAutoMigrateWithoutConnection(t *testing.T) {
	GormDB = nil
	if err := AutoMigrateModels(); err == nil {
		t.Error("expected error without a connection")
	}
	if err := CloseGormDB(); err != nil {
		t.Errorf("CloseGormDB without a connection = %v", err)
	}
}
