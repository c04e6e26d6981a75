package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"healthrisk-api/internal/common"
)

type Settings struct {
	ListenPort         int
	MetricsPort        int
	ArtifactDir        string
	ArtifactURL        string
	DataPath           string
	TopK               int
	KernelSamples      int
	BackgroundReplicas int
	LatencyBudget      time.Duration
	FetchTimeout       time.Duration
}

type ConfigFile struct {
	Server struct {
		ListenPort  int `yaml:"listenPort"`
		MetricsPort int `yaml:"metricsPort"`
	} `yaml:"server"`

	Artifacts struct {
		Dir          string `yaml:"dir"`
		URL          string `yaml:"url"`
		FetchTimeout string `yaml:"fetchTimeout"`
	} `yaml:"artifacts"`

	Explain struct {
		TopK               int `yaml:"topK"`
		KernelSamples      int `yaml:"kernelSamples"`
		BackgroundReplicas int `yaml:"backgroundReplicas"`
	} `yaml:"explain"`

	System struct {
		DataPath      string `yaml:"dataPath"`
		LatencyBudget string `yaml:"latencyBudget"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	budget, err := time.ParseDuration(config.System.LatencyBudget)
	if err != nil {
		budget = 5 * time.Second
	}
	fetchTimeout, err := time.ParseDuration(config.Artifacts.FetchTimeout)
	if err != nil {
		fetchTimeout = 30 * time.Second
	}

	settings := Settings{
		ListenPort:         getIntFromEnvOrConfig(common.EnvListenPort, config.Server.ListenPort, common.DefaultListenPort),
		MetricsPort:        getIntFromEnvOrConfig(common.EnvMetricsPort, config.Server.MetricsPort, common.DefaultMetricsPort),
		ArtifactDir:        getEnvOrDefault(common.EnvArtifactDir, orDefault(config.Artifacts.Dir, common.DefaultArtifactDir)),
		ArtifactURL:        getEnvOrDefault(common.EnvArtifactURL, config.Artifacts.URL),
		DataPath:           getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		TopK:               getIntFromEnvOrConfig(common.EnvTopK, config.Explain.TopK, common.DefaultTopK),
		KernelSamples:      getIntFromEnvOrConfig(common.EnvKernelSamples, config.Explain.KernelSamples, common.DefaultKernelSamples),
		BackgroundReplicas: getIntFromEnvOrConfig(common.EnvBackgroundReplicas, config.Explain.BackgroundReplicas, common.DefaultBackgroundReplicas),
		LatencyBudget:      getDurationOrDefault(common.EnvLatencyBudget, budget),
		FetchTimeout:       getDurationOrDefault(common.EnvFetchTimeout, fetchTimeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ListenPort:         getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		MetricsPort:        getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		ArtifactDir:        getEnvOrDefault(common.EnvArtifactDir, common.DefaultArtifactDir),
		ArtifactURL:        os.Getenv(common.EnvArtifactURL), // optional
		DataPath:           os.Getenv(common.EnvDataPath),    // optional
		TopK:               getIntOrDefault(common.EnvTopK, common.DefaultTopK),
		KernelSamples:      getIntOrDefault(common.EnvKernelSamples, common.DefaultKernelSamples),
		BackgroundReplicas: getIntOrDefault(common.EnvBackgroundReplicas, common.DefaultBackgroundReplicas),
		LatencyBudget:      getDurationOrDefault(common.EnvLatencyBudget, 5*time.Second),
		FetchTimeout:       getDurationOrDefault(common.EnvFetchTimeout, 30*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs validation of configuration values.
func validateSettings(settings *Settings) error {
	if settings.ListenPort < 1 || settings.ListenPort > 65535 {
		return fmt.Errorf("listen port must be between 1 and 65535, got %d", settings.ListenPort)
	}
	if settings.MetricsPort < 1 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1 and 65535, got %d", settings.MetricsPort)
	}
	if settings.MetricsPort == settings.ListenPort {
		return fmt.Errorf("metrics port and listen port must differ, both are %d", settings.ListenPort)
	}
	if settings.ArtifactDir == "" {
		return fmt.Errorf("artifact directory cannot be empty")
	}
	if settings.TopK < 1 || settings.TopK > 50 {
		return fmt.Errorf("topK must be between 1 and 50, got %d", settings.TopK)
	}
	if settings.KernelSamples < 10 || settings.KernelSamples > 10000 {
		return fmt.Errorf("kernel samples must be between 10 and 10000, got %d", settings.KernelSamples)
	}
	if settings.BackgroundReplicas < 1 || settings.BackgroundReplicas > 1000 {
		return fmt.Errorf("background replicas must be between 1 and 1000, got %d", settings.BackgroundReplicas)
	}
	if settings.LatencyBudget < 100*time.Millisecond || settings.LatencyBudget > time.Minute {
		return fmt.Errorf("latency budget must be between 100ms and 1m, got %v", settings.LatencyBudget)
	}
	if settings.FetchTimeout < time.Second || settings.FetchTimeout > 5*time.Minute {
		return fmt.Errorf("fetch timeout must be between 1s and 5m, got %v", settings.FetchTimeout)
	}
	return nil
}
