package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file, substitutes ${VAR} references from
// the environment, and applies the result over the defaults. An empty path
// returns the defaults unchanged, so credentials can come entirely from the
// environment in container deployments.
func Load(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath) //nolint:gosec // G304: path supplied by operator
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		content := substituteEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a configuration to a YAML file.
func Save(filePath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}

// applyEnvOverrides fills fields from well-known environment variables.
// These match the variable names the deployment's .env files have always
// used. An env value wins when the field is empty or still holds its
// built-in default; a value set explicitly in the file stays.
func applyEnvOverrides(cfg *Config) {
	defaults := Default()
	overrides := []struct {
		target   *string
		fallback string
		envVar   string
	}{
		{&cfg.Snowflake.Account, defaults.Snowflake.Account, "SNOWFLAKE_ACCOUNT"},
		{&cfg.Snowflake.User, defaults.Snowflake.User, "SNOWFLAKE_USER"},
		{&cfg.Snowflake.PrivateKey, defaults.Snowflake.PrivateKey, "PRIVATE_KEY"},
		{&cfg.Snowflake.URL, defaults.Snowflake.URL, "SNOWFLAKE_URL"},
		{&cfg.Snowflake.Database, defaults.Snowflake.Database, "DATABASE_NAME"},
		{&cfg.Snowflake.Schema, defaults.Snowflake.Schema, "SCHEMA_NAME"},
		{&cfg.Simulation.Speed, defaults.Simulation.Speed, "SPEED"},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.envVar); v != "" && *o.target == o.fallback {
			*o.target = v
		}
	}
}
