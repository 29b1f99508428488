package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateRaster(); err != nil {
		return err
	}
	if err := c.validateContainer(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.BaseURL == "" {
		return errors.New("source.base_url must be set")
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	switch c.Acquisition.Mode {
	case ModeIndependent, ModeAnchored, ModeSingle:
	default:
		return fmt.Errorf("acquisition.mode must be one of %q, %q, %q", ModeIndependent, ModeAnchored, ModeSingle)
	}

	seen := make(map[int]struct{}, len(c.Acquisition.Channels))
	for _, channel := range c.Acquisition.Channels {
		if channel < 0 || channel > 255 {
			return fmt.Errorf("acquisition.channels: channel %d outside the 0-255 identifier range", channel)
		}
		if _, dup := seen[channel]; dup {
			return fmt.Errorf("acquisition.channels: channel %d listed more than once", channel)
		}
		seen[channel] = struct{}{}
	}

	switch c.Acquisition.Mode {
	case ModeAnchored:
		if c.Acquisition.ReferenceChannel < 0 || c.Acquisition.ReferenceChannel > 255 {
			return errors.New("acquisition.reference_channel must be a 0-255 identifier in anchored mode")
		}
		if _, dup := seen[c.Acquisition.ReferenceChannel]; dup {
			return errors.New("acquisition.reference_channel must not also appear in acquisition.channels")
		}
	case ModeSingle:
		if len(c.Acquisition.Channels) != 1 {
			return errors.New("acquisition.channels must contain exactly one channel in single mode")
		}
	}
	return nil
}

func (c *Config) validateRaster() error {
	if c.Raster.ScaleFactor <= 0 || c.Raster.ScaleFactor > 8 {
		return errors.New("raster.scale_factor must be in (0, 8]")
	}
	if c.Raster.TargetWidth <= 0 || c.Raster.TargetHeight <= 0 {
		return errors.New("raster.target_width and raster.target_height must be positive")
	}
	if c.Raster.TargetWidth > 65535 || c.Raster.TargetHeight > 65535 {
		return errors.New("raster.target_width and raster.target_height must fit in 16 bits")
	}
	return nil
}

func (c *Config) validateContainer() error {
	switch c.Container.Schema {
	case SchemaRaw, SchemaCompressed:
	case SchemaComposite:
		// Composite assembly partitions the sorted channel set into two
		// groups of three, so the expected cardinality is fixed.
		if c.Acquisition.ExpectedChannels != 6 {
			return errors.New("acquisition.expected_channels must be 6 when container.schema is composite")
		}
		if len(c.ChannelSet()) != c.Acquisition.ExpectedChannels {
			return fmt.Errorf("composite schema requires %d channels, configuration supplies %d",
				c.Acquisition.ExpectedChannels, len(c.ChannelSet()))
		}
	default:
		return fmt.Errorf("container.schema must be one of %q, %q, %q", SchemaRaw, SchemaComposite, SchemaCompressed)
	}
	return nil
}
