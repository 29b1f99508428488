package config

// Reconciliation modes accepted by acquisition.mode.
const (
	ModeIndependent = "independent"
	ModeAnchored    = "anchored"
	ModeSingle      = "single"
)

// Container schemas accepted by container.schema.
const (
	SchemaRaw        = "raw"
	SchemaComposite  = "composite"
	SchemaCompressed = "compressed"
)

const (
	defaultOutputDir          = "~/helioframe/output"
	defaultWorkDir            = "~/.local/share/helioframe/work"
	defaultLogDir             = "~/.local/share/helioframe/logs"
	defaultSourceBaseURL      = "https://api.helioviewer.org/v2"
	defaultRequestTimeout     = 60
	defaultUserAgent          = "helioframe/dev"
	defaultMode               = ModeAnchored
	defaultReferenceChannel   = 19
	defaultExpectedChannels   = 6
	defaultAcquireInterval    = 900
	defaultScaleFactor        = 0.5
	defaultTargetWidth        = 2048
	defaultTargetHeight       = 2048
	defaultSchema             = SchemaComposite
	defaultOutputName         = "solar.dat"
	defaultSidecarName        = "timestamp.txt"
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// defaultChannels lists the observatory source identifiers acquired when the
// config does not override acquisition.channels. These are the standard EUV
// and UV imager channels; the magnetogram channel (19) is the reference in
// anchored mode and is appended separately.
func defaultChannels() []int {
	return []int{9, 10, 11, 13, 16}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
		},
		Source: Source{
			BaseURL:        defaultSourceBaseURL,
			RequestTimeout: defaultRequestTimeout,
			UserAgent:      defaultUserAgent,
		},
		Acquisition: Acquisition{
			Mode:             defaultMode,
			Channels:         defaultChannels(),
			ReferenceChannel: defaultReferenceChannel,
			ExpectedChannels: defaultExpectedChannels,
			Interval:         defaultAcquireInterval,
		},
		Raster: Raster{
			ScaleFactor:  defaultScaleFactor,
			TargetWidth:  defaultTargetWidth,
			TargetHeight: defaultTargetHeight,
		},
		Container: Container{
			Schema:           defaultSchema,
			OutputName:       defaultOutputName,
			TimestampSidecar: true,
			SidecarName:      defaultSidecarName,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
