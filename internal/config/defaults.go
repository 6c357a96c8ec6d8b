package config

const (
	defaultDataDir            = "~/.local/share/station"
	defaultLogDir             = "~/.local/share/station/logs"
	defaultRemoteTimeout      = 30
	defaultRetryLimit         = 3
	defaultGraceWindowSeconds = 30
	defaultStatusPollInterval = 5
	defaultProbeURL           = "" // derived from remote.base_url when empty
	defaultProbeInterval      = 15
	defaultProbeTimeout       = 5
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Remote: Remote{
			RequestTimeout: defaultRemoteTimeout,
		},
		Sync: Sync{
			RetryLimit:         defaultRetryLimit,
			GraceWindowSeconds: defaultGraceWindowSeconds,
			StatusPollInterval: defaultStatusPollInterval,
			DrainOnEnqueue:     true,
		},
		Connectivity: Connectivity{
			ProbeURL:      defaultProbeURL,
			ProbeInterval: defaultProbeInterval,
			ProbeTimeout:  defaultProbeTimeout,
			WatchNetlink:  true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			SyncOutcomes:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
