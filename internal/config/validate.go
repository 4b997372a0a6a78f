package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedContainers = map[string]struct{}{
	"mp4": {},
	"mkv": {},
}

var supportedLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

// Validate reports configuration values that cannot work at runtime.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		problems = append(problems, "paths.output_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if c.Paths.StagingDir != "" && c.Paths.StagingDir == c.Paths.OutputDir {
		problems = append(problems, "paths.staging_dir must differ from paths.output_dir")
	}
	if len(c.Scan.Packages) == 0 {
		problems = append(problems, "scan.packages must name at least one source package")
	}
	if _, ok := supportedContainers[c.FFmpeg.Container]; !ok {
		problems = append(problems, fmt.Sprintf("ffmpeg.container %q is not supported (mp4, mkv)", c.FFmpeg.Container))
	}
	if _, ok := supportedLogFormats[c.Logging.Format]; !ok {
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}
	if c.Export.Workers > 16 {
		problems = append(problems, "export.workers above 16 only thrashes the remux tool")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
