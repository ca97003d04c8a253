package config

const (
	defaultLogDir         = "~/.local/share/mptx/logs"
	defaultStateDir       = "~/.local/share/mptx/state"
	defaultPrefixEnv      = "CONDA_PREFIX"
	defaultWebUIScript    = "webui/Main.py"
	defaultAPIScript      = "main.py"
	defaultDesktopScript  = "desktop.py"
	defaultHost           = "127.0.0.1"
	defaultStartupTimeout = 30
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultRetentionDays  = 30

	defaultPytorchCUDAAllocConf     = "max_split_size_mb:32"
	defaultCUDNNLogInfoDbg          = "0"
	defaultPythonWarnings           = "ignore::UserWarning:streamlit"
	defaultChatterboxCFGWeight      = "0.2"
	defaultChatterboxChunkThreshold = "800"
	defaultChatterboxDevice         = "cpu"
	defaultPyannoteCache            = "/tmp/pyannote"
)

var defaultVenvDirs = []string{".venv", "venv"}

// Default returns a Config populated with launcher defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Runtime: Runtime{
			PrefixEnv: defaultPrefixEnv,
			VenvDirs:  append([]string(nil), defaultVenvDirs...),
			Python:    defaultPythonBinary(),
			DotEnv:    true,
		},
		Tuning: Tuning{
			PytorchCUDAAllocConf:     defaultPytorchCUDAAllocConf,
			CUDNNLogInfoDbg:          defaultCUDNNLogInfoDbg,
			PythonWarnings:           defaultPythonWarnings,
			ChatterboxCFGWeight:      defaultChatterboxCFGWeight,
			ChatterboxChunkThreshold: defaultChatterboxChunkThreshold,
			ChatterboxDevice:         defaultChatterboxDevice,
			PyannoteCache:            defaultPyannoteCache,
		},
		Launch: Launch{
			WebUIScript:    defaultWebUIScript,
			APIScript:      defaultAPIScript,
			DesktopScript:  defaultDesktopScript,
			Host:           defaultHost,
			StartupTimeout: defaultStartupTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}
