// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// package config loads clusterkey settings from defaults, the clusterkey.yaml
// file, CLUSTERKEY_* environment variables and command line flags, in rising
// order of precedence. It also writes a settings file back out.
package config // import "github.com/toeirei/clusterkey/internal/config"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// CLUSTERKEY_CLUSTER_NAME for cluster.name.
const EnvPrefix = "clusterkey"

// Config is the full settings tree.
type Config struct {
	Cluster  ClusterConfig  `mapstructure:"cluster" yaml:"cluster"`
	Node     NodeConfig     `mapstructure:"node" yaml:"node"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Entropy  EntropyConfig  `mapstructure:"entropy" yaml:"entropy"`
	Keygen   KeygenConfig   `mapstructure:"keygen" yaml:"keygen"`
	Deploy   DeployConfig   `mapstructure:"deploy" yaml:"deploy"`
	Language string         `mapstructure:"language" yaml:"language"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ClusterConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	AuthkeyFile string `mapstructure:"authkey_file" yaml:"authkey_file"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

type NodeConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Hostname string `mapstructure:"hostname" yaml:"hostname,omitempty"`
	Owner    string `mapstructure:"owner" yaml:"owner"`
}

type RegistryConfig struct {
	// Offline selects standalone mode, where registry search is unavailable.
	Offline bool `mapstructure:"offline" yaml:"offline"`
}

type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

type EntropyConfig struct {
	Package string `mapstructure:"package" yaml:"package"`
	Service string `mapstructure:"service" yaml:"service"`
}

type KeygenConfig struct {
	// Command is the argv of the external generator; "{path}" is replaced
	// with the key file path.
	Command []string `mapstructure:"command" yaml:"command"`
	// Builtin generates random bytes in-process instead of running Command.
	Builtin bool `mapstructure:"builtin" yaml:"builtin"`
	Size    int  `mapstructure:"size" yaml:"size"`
}

type DeployConfig struct {
	User       string `mapstructure:"user" yaml:"user"`
	PrivateKey string `mapstructure:"private_key" yaml:"private_key,omitempty"`
	Port       int    `mapstructure:"port" yaml:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns the built-in default for every key.
func Defaults() map[string]any {
	host, _ := os.Hostname()
	return map[string]any{
		"cluster.name":         "",
		"cluster.authkey_file": "/etc/corosync/authkey",
		"cluster.environment":  "_default",
		"node.name":            host,
		"node.hostname":        "",
		"node.owner":           "root",
		"registry.offline":     false,
		"database.type":        "sqlite",
		"database.dsn":         "./clusterkey.db",
		"entropy.package":      "haveged",
		"entropy.service":      "haveged",
		"keygen.command":       []string{"corosync-keygen", "-k", "{path}"},
		"keygen.builtin":       false,
		"keygen.size":          128,
		"deploy.user":          "root",
		"deploy.private_key":   "",
		"deploy.port":          22,
		"language":             "en",
		"log.level":            "info",
	}
}

// GetConfigPath returns the user (or, with system set, the system-wide)
// location of clusterkey.yaml.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Clusterkey")
		default:
			configDir = "/etc/clusterkey"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "clusterkey")
	}
	return filepath.Join(configDir, "clusterkey.yaml"), nil
}

// Load resolves the settings for cmd. An explicit path must exist; the
// standard locations are optional.
func Load(cmd *cobra.Command, defaults map[string]any, explicitPath string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("clusterkey")
	v.SetConfigType("yaml")
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	}
	if p, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	if p, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := bindFlags(v, cmd); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// bindFlags binds every flag whose name matches a config key. Flags use
// dashes ("cluster-name") where keys use dots and underscores.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key := range Defaults() {
		flag := strings.NewReplacer(".", "-", "_", "-").Replace(key)
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteConfigFile writes c as YAML to path, or to the user/system location
// when path is empty, and returns the path written.
func WriteConfigFile(c *Config, path string, system bool) (string, error) {
	if path == "" {
		p, err := GetConfigPath(system)
		if err != nil {
			return "", err
		}
		path = p
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	// The DSN may carry database credentials.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
