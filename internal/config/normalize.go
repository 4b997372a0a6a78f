package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScan(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() error {
	packages := make([]string, 0, len(c.Scan.Packages))
	seen := make(map[string]struct{}, len(c.Scan.Packages))
	for _, pkg := range c.Scan.Packages {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}
		if _, ok := seen[pkg]; ok {
			continue
		}
		seen[pkg] = struct{}{}
		packages = append(packages, pkg)
	}
	if len(packages) == 0 {
		packages = append(packages, defaultPackages...)
	}
	c.Scan.Packages = packages

	roots := make([]string, 0, len(c.Scan.ExtraRoots))
	for _, root := range c.Scan.ExtraRoots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		expanded, err := expandPath(root)
		if err != nil {
			return fmt.Errorf("scan.extra_roots: %w", err)
		}
		roots = append(roots, expanded)
	}
	c.Scan.ExtraRoots = roots

	if c.Scan.MaxDepth <= 0 {
		c.Scan.MaxDepth = defaultScanMaxDepth
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if c.FFmpeg.RemuxTimeout <= 0 {
		c.FFmpeg.RemuxTimeout = defaultRemuxTimeout
	}
	c.FFmpeg.Container = strings.ToLower(strings.TrimSpace(c.FFmpeg.Container))
	if c.FFmpeg.Container == "" {
		c.FFmpeg.Container = defaultContainer
	}
}

func (c *Config) normalizeExport() {
	if c.Export.Workers <= 0 {
		c.Export.Workers = defaultWorkers
	}
	if c.Export.MinFreeMiB < 0 {
		c.Export.MinFreeMiB = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
