/**
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
'License'); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
'AS IS' BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gocarrot/teak-xcpost/assetsync"
	"github.com/gocarrot/teak-xcpost/manifest"
)

const (
	AdSupportFramework = "System/Library/Frameworks/AdSupport.framework"
	StoreKitFramework  = "System/Library/Frameworks/StoreKit.framework"
	SQLiteLibrary      = "usr/lib/libsqlite3.tbd"

	DefaultProjectName     = "Unity-iPhone"
	DefaultStagingDir      = "Teak"
	DefaultURLSchemePrefix = "teak"
)

type Config struct {
	Mode assetsync.Mode `mapstructure:"mode"`
	// Frameworks are SDK relative paths registered in the project.
	Frameworks      []string `mapstructure:"frameworks"`
	StagingDir      string   `mapstructure:"staging_dir"`
	URLSchemePrefix string   `mapstructure:"url_scheme_prefix"`
	Excludes        []string `mapstructure:"excludes"`
	HiddenPrefix    string   `mapstructure:"hidden_prefix"`
	MetaExt         string   `mapstructure:"meta_ext"`
	AppIDKey        string   `mapstructure:"app_id_key"`
	APIKeyKey       string   `mapstructure:"api_key_key"`
	ProjectName     string   `mapstructure:"project_name"`
	Target          string   `mapstructure:"target"`
}

// Default returns the built-in configuration for mode. The staging mode
// also links StoreKit and registers the teak URL scheme.
func Default(mode assetsync.Mode) Config {
	cfg := Config{
		Mode:         mode,
		StagingDir:   DefaultStagingDir,
		Excludes:     append([]string(nil), assetsync.DefaultExcludes...),
		HiddenPrefix: assetsync.DefaultHiddenPrefix,
		MetaExt:      assetsync.DefaultMetaExt,
		AppIDKey:     manifest.DefaultAppIDKey,
		APIKeyKey:    manifest.DefaultAPIKeyKey,
		ProjectName:  DefaultProjectName,
	}
	cfg.Frameworks, cfg.URLSchemePrefix = modeDefaults(mode)
	return cfg
}

func modeDefaults(mode assetsync.Mode) ([]string, string) {
	if mode == assetsync.ModeReference {
		return []string{AdSupportFramework, SQLiteLibrary}, ""
	}
	return []string{AdSupportFramework, StoreKitFramework, SQLiteLibrary}, DefaultURLSchemePrefix
}

// New returns a viper instance carrying the mode independent defaults.
// frameworks and url_scheme_prefix are left unset so that Load can tell a
// configured value from the mode default.
func New() *viper.Viper {
	v := viper.New()
	d := Default(assetsync.ModeStage)
	v.SetDefault("mode", string(d.Mode))
	v.SetDefault("staging_dir", d.StagingDir)
	v.SetDefault("excludes", d.Excludes)
	v.SetDefault("hidden_prefix", d.HiddenPrefix)
	v.SetDefault("meta_ext", d.MetaExt)
	v.SetDefault("app_id_key", d.AppIDKey)
	v.SetDefault("api_key_key", d.APIKeyKey)
	v.SetDefault("project_name", d.ProjectName)
	v.SetDefault("target", "")
	return v
}

// Load reads the optional config file and overlays the flags of fs that
// carry a config key name, such as --mode.
func Load(file string, fs *pflag.FlagSet) (Config, error) {
	v := New()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}
	if fs != nil {
		for _, key := range []string{"mode", "target"} {
			if flag := fs.Lookup(key); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return Config{}, fmt.Errorf("binding flag %s: %w", key, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	mode, err := assetsync.ParseMode(string(cfg.Mode))
	if err != nil {
		return Config{}, err
	}
	cfg.Mode = mode

	frameworks, prefix := modeDefaults(mode)
	if !v.IsSet("frameworks") {
		cfg.Frameworks = frameworks
	}
	if !v.IsSet("url_scheme_prefix") {
		cfg.URLSchemePrefix = prefix
	}
	return cfg, nil
}

// ProjectPath is the location of the project descriptor below root.
func (c Config) ProjectPath(root string) string {
	return filepath.Join(root, c.ProjectName+".xcodeproj", "project.pbxproj")
}

// StagingPath is the staging directory below root.
func (c Config) StagingPath(root string) string {
	if filepath.IsAbs(c.StagingDir) {
		return c.StagingDir
	}
	return filepath.Join(root, c.StagingDir)
}
