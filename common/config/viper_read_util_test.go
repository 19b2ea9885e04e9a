package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/rainbow-me/logcontext/common/env"
	"github.com/rainbow-me/logcontext/common/test"
)

type testConfig struct {
	Ticket struct {
		Redis struct {
			Addr string `mapstructure:"addr"`
		} `mapstructure:"redis"`
	} `mapstructure:"ticket"`
}

const redisYaml = `
ticket:
  redis:
    addr: "localhost:6379"
`

// createTempConfig writes <tmp>/<basePath>/<dynamicDir>/<appEnv>.yaml unless content is empty
// and returns <tmp>.
func createTempConfig(t *testing.T, basePath, dynamicDir, appEnv, content string) string {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	configPath := filepath.Join(tempDir, basePath, dynamicDir)
	require.NoError(t, os.MkdirAll(configPath, 0o755))

	if content != "" {
		filePath := filepath.Join(configPath, appEnv+".yaml")
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}
	return tempDir
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name       string
		appEnv     string
		envVars    map[string]string
		content    string
		basePath   string
		dynamicDir string
		chdirTo    string
		absolute   bool
		options    []ReadConfigOption
		want       string
		wantErr    string
	}{
		{
			name:     "Basic configuration loading",
			appEnv:   "development",
			content:  redisYaml,
			basePath: "cmd/config",
			want:     "localhost:6379",
		},
		{
			name:     "Environment variable overrides file value",
			appEnv:   "development",
			envVars:  map[string]string{"TICKET_REDIS_ADDR": "override:1234"},
			content:  redisYaml,
			basePath: "cmd/config",
			want:     "override:1234",
		},
		{
			name:     "Placeholder replaced by environment variable",
			appEnv:   "staging",
			envVars:  map[string]string{"MY_REDIS": "fromenv:5678"},
			content:  "ticket:\n  redis:\n    addr: \"env://MY_REDIS\"\n",
			basePath: "cmd/config",
			want:     "fromenv:5678",
		},
		{
			name:     "Missing placeholder variable resolves to empty",
			appEnv:   "development",
			content:  "ticket:\n  redis:\n    addr: \"env://NON_EXISTENT_REDIS\"\n",
			basePath: "cmd/config",
			want:     "",
		},
		{
			name:     "Invalid environment",
			appEnv:   "invalid",
			content:  redisYaml,
			basePath: "cmd/config",
			wantErr:  "invalid environment",
		},
		{
			name:     "Missing config file",
			appEnv:   "development",
			basePath: "cmd/config",
			wantErr:  "failed to read configuration file",
		},
		{
			name:     "Binary target directory reads ./config",
			appEnv:   "production",
			content:  redisYaml,
			basePath: "target/config",
			chdirTo:  "target",
			want:     "localhost:6379",
		},
		{
			name:       "Dynamic directory",
			appEnv:     "development",
			content:    redisYaml,
			basePath:   "cmd/config",
			dynamicDir: "subdir",
			options:    []ReadConfigOption{WithDynamicDir("subdir")},
			want:       "localhost:6379",
		},
		{
			name:     "Absolute path",
			appEnv:   "local",
			content:  redisYaml,
			basePath: "elsewhere",
			absolute: true,
			want:     "localhost:6379",
		},
		{
			name:     "Relative path",
			appEnv:   "local-docker",
			content:  redisYaml,
			basePath: "deploy",
			options:  []ReadConfigOption{WithRelativePath("./deploy")},
			want:     "localhost:6379",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := createTempConfig(t, tt.basePath, tt.dynamicDir, tt.appEnv, tt.content)

			t.Setenv(env.ApplicationEnvKey, tt.appEnv)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			oldWd, err := os.Getwd()
			require.NoError(t, err)
			t.Cleanup(func() { _ = os.Chdir(oldWd) })
			require.NoError(t, os.Chdir(filepath.Join(tempDir, tt.chdirTo)))

			options := tt.options
			if tt.absolute {
				options = append(options, WithAbsolutePath(filepath.Join(tempDir, tt.basePath)))
			}

			viper.Reset()
			t.Cleanup(viper.Reset)

			var conf testConfig
			err = LoadConfig(&conf, test.NewLogger(t), options...)
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, conf.Ticket.Redis.Addr)
		})
	}
}
