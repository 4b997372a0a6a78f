package config

const (
	defaultOutputDir    = "~/bilicache"
	defaultStagingDir   = "~/.local/share/bilicache/staging"
	defaultLogDir       = "~/.local/share/bilicache/logs"
	defaultScanMaxDepth = 8
	defaultFFmpegBinary = "ffmpeg"
	defaultRemuxTimeout = 600
	defaultContainer    = "mp4"
	defaultWorkers      = 1
	defaultMinFreeMiB   = 256
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// defaultPackages lists the Android application ids known to write the cache
// layout bilicache understands. Schema drift between app releases is handled
// here and in the cache package tables, not by branching in the parser.
var defaultPackages = []string{
	"tv.danmaku.bili",       // standard app
	"com.bilibili.app.blue", // concept app
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Scan: Scan{
			Packages: append([]string(nil), defaultPackages...),
			MaxDepth: defaultScanMaxDepth,
		},
		FFmpeg: FFmpeg{
			Binary:       defaultFFmpegBinary,
			RemuxTimeout: defaultRemuxTimeout,
			Container:    defaultContainer,
		},
		Export: Export{
			Workers:    defaultWorkers,
			MinFreeMiB: defaultMinFreeMiB,
			Covers:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
