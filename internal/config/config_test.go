package config

import (
	"reflect"
	"testing"

	"github.com/spf13/viper"
)

func TestLoad(t *testing.T) {
	v := viper.New()
	v.Set("dsn", "music.db")
	v.Set("exclude", []string{"audit_log"})
	v.Set("junction_prefix", "map")
	v.Set("debug", true)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		DSN:            "music.db",
		Exclude:        []string{"audit_log"},
		JunctionPrefix: "map",
		Debug:          true,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	if _, err := Load(viper.New()); err == nil {
		t.Fatal("expected error for missing DSN")
	}
}
