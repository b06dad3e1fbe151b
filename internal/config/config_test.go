package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Less || cfg.Follow || cfg.Summary || cfg.ShowRules || cfg.Verbose {
		t.Errorf("expected boolean settings off by default, got %+v", cfg)
	}
	if cfg.Color != ColorAlways {
		t.Errorf("expected color %q, got %q", ColorAlways, cfg.Color)
	}
	if cfg.Policy != "leftmost" {
		t.Errorf("expected policy leftmost, got %q", cfg.Policy)
	}
	if cfg.Pager != "less -R" {
		t.Errorf("expected pager 'less -R', got %q", cfg.Pager)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colorlog.yaml")
	content := "less: true\npolicy: Priority\ncolor: never\npager: most -R\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Less {
		t.Error("expected less enabled from file")
	}
	if cfg.Policy != "priority" {
		t.Errorf("expected normalized policy 'priority', got %q", cfg.Policy)
	}
	if cfg.Color != ColorNever {
		t.Errorf("expected color never, got %q", cfg.Color)
	}
	if cfg.Pager != "most -R" {
		t.Errorf("expected pager 'most -R', got %q", cfg.Pager)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		want  string
	}{
		{"bad color", KeyColor, "sometimes", "color"},
		{"bad policy", KeyPolicy, "rightmost", "policy"},
		{"blank pager", KeyPager, "   ", "pager"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(KeyLess, true)
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want+":") {
				t.Errorf("expected error to name %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEmptyPagerRequiresLessOff(t *testing.T) {
	v := newViper()
	v.Set(KeyPager, "")
	if _, err := Load(v); err != nil {
		t.Errorf("expected empty pager to be fine without --less, got %v", err)
	}

	v.Set(KeyLess, true)
	if _, err := Load(v); err == nil {
		t.Error("expected error for empty pager with --less")
	}
}

func TestMultipleErrorsReported(t *testing.T) {
	v := newViper()
	v.Set(KeyColor, "rainbow")
	v.Set(KeyPolicy, "random")

	_, err := Load(v)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "2 error(s)") {
		t.Errorf("expected both errors reported, got %v", err)
	}
}
