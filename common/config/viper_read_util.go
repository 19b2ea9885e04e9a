package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/rainbow-me/logcontext/common/env"
	"github.com/rainbow-me/logcontext/common/logger"
)

const (
	fileFormat     = ".yaml"        // File format of the config files
	relativePath   = "./cmd/config" // Default relative path for config files (base path)
	binaryPath     = "./config"     // Path for binary build config (base path)
	binaryDir      = "target"       // Directory name for the binary target
	binaryInDocker = "app"          // Directory name for Docker deployment
	envVarPrefix   = "env://"       // Prefix for environment variables
)

// YamlReadConfig holds the configuration paths (relative and absolute).
type YamlReadConfig struct {
	RelativePath string // Path relative to the current directory
	AbsolutePath string // Absolute path if provided
	DynamicDir   string // Optional dynamic directory
}

// ReadConfigOption is a function signature used to set configuration options.
type ReadConfigOption func(*YamlReadConfig)

// WithRelativePath sets a relative path for the config file.
func WithRelativePath(path string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.RelativePath = path
	}
}

// WithAbsolutePath sets an absolute path for the config file.
func WithAbsolutePath(path string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.AbsolutePath = path
	}
}

// WithDynamicDir allows setting a dynamic subdirectory for the configuration path.
func WithDynamicDir(dynamicDir string) ReadConfigOption {
	return func(config *YamlReadConfig) {
		config.DynamicDir = dynamicDir
	}
}

// LoadConfig reads <dir>/<ENVIRONMENT>.yaml into conf. Environment variables override file
// values (dots become underscores) and "env://NAME" values are replaced by $NAME.
func LoadConfig(conf any, log *logger.Logger, options ...ReadConfigOption) error {
	config := &YamlReadConfig{RelativePath: relativePath}
	for _, option := range options {
		option(config)
	}

	currentEnv, err := env.GetApplicationEnv()
	if err != nil {
		return errors.Wrap(err, "invalid environment")
	}

	dir, err := config.dir(log)
	if err != nil {
		return err
	}

	filePath := filepath.Join(dir, currentEnv.String()+fileFormat)
	log.Info("Reading config file", logger.String("path", filePath))

	viper.SetConfigFile(filePath)
	viper.SetEnvPrefix("")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return errors.Wrap(err, "failed to read configuration file")
	}

	for _, key := range viper.AllKeys() {
		resolveEnvPlaceholder(key, viper.Get(key), log)
	}

	if err := viper.Unmarshal(conf); err != nil {
		return errors.Wrap(err, "failed to unmarshal configuration")
	}
	return nil
}

// dir picks the directory holding the config files. Binaries started from a target or app
// directory read ./config instead of ./cmd/config.
func (c *YamlReadConfig) dir(log *logger.Logger) (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get current working directory")
	}

	relative := c.RelativePath
	if strings.Contains(currentDir, binaryDir) || strings.Contains(currentDir, binaryInDocker) {
		log.Debug("Running from a binary directory", logger.String("directory", currentDir))
		relative = binaryPath
	}

	dir := relative
	if c.AbsolutePath != "" {
		dir = c.AbsolutePath
	}
	if c.DynamicDir != "" {
		dir = fmt.Sprintf("%s/%s", dir, c.DynamicDir)
	}
	return dir, nil
}

func resolveEnvPlaceholder(key string, value any, log *logger.Logger) {
	str, ok := value.(string)
	if !ok || !strings.HasPrefix(str, envVarPrefix) {
		return
	}

	name := strings.TrimPrefix(str, envVarPrefix)
	envValue, exists := os.LookupEnv(name)
	if !exists {
		log.Warn("Environment variable not found", logger.String("variableName", name))
	}
	// missing variables resolve to the empty string
	viper.Set(key, envValue)
}
