package config

type ServerConfig struct {
	Log       LogConfig       `mapstructure:"log"`
	Serve     Serve           `mapstructure:"serve"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
}

type LogConfig struct {
	Level string `default:"info" mapstructure:"level"` // log level - debug, info, warning, error, fatal
}

type Serve struct {
	Port int    `default:"9100" mapstructure:"port"` // port to listen on
	Host string `mapstructure:"host"`
}

type TelemetryConfig struct {
	ProfileAddr string `mapstructure:"profile_addr"`
}

type StorageConfig struct {
	Path string `default:"." mapstructure:"path"` // repository root holding jobs/, results/ and timelines/
}

type ExecutorConfig struct {
	Command          string   `mapstructure:"command"` // external command performing one job analysis per run
	Args             []string `mapstructure:"args"`
	WorkDir          string   `mapstructure:"work_dir"`
	TimeoutInMinutes int      `default:"60"             mapstructure:"timeout_in_minutes"`
}

type AlertingConfig struct {
	WebhookURL       string `mapstructure:"webhook_url"` // alert notification endpoint, alerts stay log-only when empty
	TimeoutInSeconds int    `default:"10"                mapstructure:"timeout_in_seconds"`
}
