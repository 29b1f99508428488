package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeAcquisition()
	c.normalizeContainer()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}
	if c.Source.RequestTimeout <= 0 {
		c.Source.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeAcquisition() {
	c.Acquisition.Mode = strings.ToLower(strings.TrimSpace(c.Acquisition.Mode))
	if c.Acquisition.Mode == "" {
		c.Acquisition.Mode = defaultMode
	}
	if len(c.Acquisition.Channels) == 0 {
		c.Acquisition.Channels = defaultChannels()
	}
	if c.Acquisition.ExpectedChannels <= 0 {
		c.Acquisition.ExpectedChannels = defaultExpectedChannels
	}
	if c.Acquisition.Interval <= 0 {
		c.Acquisition.Interval = defaultAcquireInterval
	}
}

func (c *Config) normalizeContainer() {
	c.Container.Schema = strings.ToLower(strings.TrimSpace(c.Container.Schema))
	if c.Container.Schema == "" {
		c.Container.Schema = defaultSchema
	}
	c.Container.OutputName = strings.TrimSpace(c.Container.OutputName)
	if c.Container.OutputName == "" {
		c.Container.OutputName = defaultOutputName
	}
	c.Container.SidecarName = strings.TrimSpace(c.Container.SidecarName)
	if c.Container.SidecarName == "" {
		c.Container.SidecarName = defaultSidecarName
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
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
