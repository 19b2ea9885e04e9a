package env

import (
	"os"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

const ApplicationEnvKey = "ENVIRONMENT"

// Environment represents the application deployment environment
type Environment string

const (
	EnvironmentLocal       Environment = "local"
	EnvironmentLocalDocker Environment = "local-docker"
	EnvironmentDevelopment Environment = "development"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

var supportedEnvironments = []Environment{
	EnvironmentLocal,
	EnvironmentLocalDocker,
	EnvironmentDevelopment,
	EnvironmentStaging,
	EnvironmentProduction,
}

func (e Environment) String() string { return string(e) }

// IsLocal reports whether e is one of the developer environments.
func (e Environment) IsLocal() bool {
	return e == EnvironmentLocal || e == EnvironmentLocalDocker
}

func IsEnvironmentValid(environment string) error {
	if slices.Contains(supportedEnvironments, Environment(environment)) {
		return nil
	}

	names := make([]string, 0, len(supportedEnvironments))
	for _, e := range supportedEnvironments {
		names = append(names, e.String())
	}

	return errors.Newf("invalid environment: %s must be set to one of %s", ApplicationEnvKey, strings.Join(names, ", "))
}

// FromString parses an environment name. Surrounding spaces and case are ignored.
func FromString(environment string) (Environment, error) {
	environment = strings.ToLower(strings.TrimSpace(environment))
	if err := IsEnvironmentValid(environment); err != nil {
		return "", err
	}
	return Environment(environment), nil
}

// GetApplicationEnv returns the environment if found in env vars and is valid
func GetApplicationEnv() (Environment, error) {
	return FromString(os.Getenv(ApplicationEnvKey))
}

// GetApplicationEnvOrDefault returns the environment if found, else defaults to the specified env
func GetApplicationEnvOrDefault(defaultEnv Environment) Environment {
	env, err := GetApplicationEnv()
	if err != nil {
		env = defaultEnv
	}
	return env
}

// GetApplicationEnvSafe returns the environment if found, else defaults to EnvironmentLocal
func GetApplicationEnvSafe() Environment {
	return GetApplicationEnvOrDefault(EnvironmentLocal)
}

func IsLocalApplicationEnv() bool {
	return GetApplicationEnvSafe().IsLocal()
}
