package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"

	"github.com/gocarrot/teak-xcpost/assetsync"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func modeFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("mode", "", "")
	fs.String("target", "", "")
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default(assetsync.ModeStage)) {
		t.Errorf("Load() = %+v, want %+v", cfg, Default(assetsync.ModeStage))
	}
}

func TestLoadModeDefaults(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		wantMode       assetsync.Mode
		wantFrameworks []string
		wantPrefix     string
	}{
		{"stage by default", nil, assetsync.ModeStage, []string{AdSupportFramework, StoreKitFramework, SQLiteLibrary}, "teak"},
		{"reference flag", []string{"--mode", "reference"}, assetsync.ModeReference, []string{AdSupportFramework, SQLiteLibrary}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", modeFlags(t, tt.args...))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", cfg.Mode, tt.wantMode)
			}
			if !reflect.DeepEqual(cfg.Frameworks, tt.wantFrameworks) {
				t.Errorf("Frameworks = %v, want %v", cfg.Frameworks, tt.wantFrameworks)
			}
			if cfg.URLSchemePrefix != tt.wantPrefix {
				t.Errorf("URLSchemePrefix = %q, want %q", cfg.URLSchemePrefix, tt.wantPrefix)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, "teak.yaml", `mode: reference
frameworks:
  - System/Library/Frameworks/AdSupport.framework
  - System/Library/Frameworks/UserNotifications.framework
url_scheme_prefix: fb
staging_dir: Vendor/Teak
project_name: Game-iPhone
`)

	cfg, err := Load(path, modeFlags(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode != assetsync.ModeReference {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	want := []string{AdSupportFramework, "System/Library/Frameworks/UserNotifications.framework"}
	if !reflect.DeepEqual(cfg.Frameworks, want) {
		t.Errorf("Frameworks = %v, want %v", cfg.Frameworks, want)
	}
	if cfg.URLSchemePrefix != "fb" {
		t.Errorf("URLSchemePrefix = %q", cfg.URLSchemePrefix)
	}
	if cfg.MetaExt != ".meta" || cfg.AppIDKey != "TeakAppId" {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if got, want := cfg.ProjectPath("/export"), filepath.Join("/export", "Game-iPhone.xcodeproj", "project.pbxproj"); got != want {
		t.Errorf("ProjectPath() = %q, want %q", got, want)
	}
	if got, want := cfg.StagingPath("/export"), filepath.Join("/export", "Vendor/Teak"); got != want {
		t.Errorf("StagingPath() = %q, want %q", got, want)
	}
}

func TestLoadFlagOverridesFile(t *testing.T) {
	path := writeConfig(t, "teak.yaml", "mode: reference\n")

	cfg, err := Load(path, modeFlags(t, "--mode", "stage"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode != assetsync.ModeStage {
		t.Errorf("Mode = %q, want stage", cfg.Mode)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		args []string
	}{
		{"missing file", filepath.Join(os.TempDir(), "teak-xcpost-missing.yaml"), nil},
		{"unknown mode", "", []string{"--mode", "copy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.file, modeFlags(t, tt.args...)); err == nil {
				t.Error("Load() error = nil")
			}
		})
	}
}
