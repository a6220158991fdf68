package config

import (
	"fmt"
	"strings"
	"unicode"
)

var validCodecs = map[string]bool{
	"vp8": true,
	"vp9": true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult separates startup-blocking problems from ones that were
// auto-corrected and merely deserve a log line.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// AllErrors returns fatals followed by warnings, for callers that just want
// a flat list to print.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks the config for invalid values. Out-of-range
// numeric settings are clamped in place and reported as warnings; values
// with no safe default (an unusable codec, a control-character token) are
// reported as fatals that block startup.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.ListenPort < 1 || c.ListenPort > 65535 {
		r.Fatals = append(r.Fatals, fmt.Errorf("listen_port %d is out of range 1-65535", c.ListenPort))
	}

	if c.Codec != "" && !validCodecs[strings.ToLower(c.Codec)] {
		r.Fatals = append(r.Fatals, fmt.Errorf("codec %q is not supported (use vp8 or vp9)", c.Codec))
	}

	if (c.CertPath == "") != (c.KeyPath == "") {
		r.Fatals = append(r.Fatals, fmt.Errorf("cert_path and key_path must both be set or both be empty"))
	}

	for _, r2 := range c.AuthToken {
		if unicode.IsControl(r2) {
			r.Fatals = append(r.Fatals, fmt.Errorf("auth_token contains control characters"))
			break
		}
	}

	if c.BitrateKbps < 500 {
		r.Warnings = append(r.Warnings, fmt.Errorf("bitrate_kbps %d is below minimum 500, clamping", c.BitrateKbps))
		c.BitrateKbps = 500
	} else if c.BitrateKbps > 8000 {
		r.Warnings = append(r.Warnings, fmt.Errorf("bitrate_kbps %d exceeds maximum 8000, clamping", c.BitrateKbps))
		c.BitrateKbps = 8000
	}

	if c.FPS < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("fps %d is below minimum 1, clamping", c.FPS))
		c.FPS = 1
	} else if c.FPS > 60 {
		r.Warnings = append(r.Warnings, fmt.Errorf("fps %d exceeds maximum 60, clamping", c.FPS))
		c.FPS = 60
	}

	if c.EncoderThreads < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("encoder_threads %d is below minimum 1, clamping", c.EncoderThreads))
		c.EncoderThreads = 1
	} else if c.EncoderThreads > 16 {
		r.Warnings = append(r.Warnings, fmt.Errorf("encoder_threads %d exceeds maximum 16, clamping", c.EncoderThreads))
		c.EncoderThreads = 16
	}

	if c.MaxClients < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("max_clients %d is below minimum 1, clamping", c.MaxClients))
		c.MaxClients = 1
	} else if c.MaxClients > 64 {
		r.Warnings = append(r.Warnings, fmt.Errorf("max_clients %d exceeds maximum 64, clamping", c.MaxClients))
		c.MaxClients = 64
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}
