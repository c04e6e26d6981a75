package common

// Prediction targets, in the fixed order they are reported.
const (
	TargetObesity      = "Obesity_Flag"
	TargetHypertension = "Hypertension_Flag"
	TargetStroke       = "Stroke_Flag"
)

// Environment variable keys
const (
	EnvConfigFile         = "CONFIG_FILE"
	EnvListenPort         = "LISTEN_PORT"
	EnvMetricsPort        = "METRICS_PORT"
	EnvArtifactDir        = "ARTIFACT_DIR"
	EnvArtifactURL        = "ARTIFACT_URL"
	EnvDataPath           = "DATA_PATH"
	EnvTopK               = "TOP_K"
	EnvKernelSamples      = "KERNEL_SAMPLES"
	EnvBackgroundReplicas = "BACKGROUND_REPLICAS"
	EnvLatencyBudget      = "LATENCY_BUDGET"
	EnvFetchTimeout       = "FETCH_TIMEOUT"
)

// Configuration defaults
const (
	DefaultListenPort         = 8000
	DefaultMetricsPort        = 9090
	DefaultArtifactDir        = "artifacts"
	DefaultTopK               = 5
	DefaultKernelSamples      = 50
	DefaultBackgroundReplicas = 10
)
