package main

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/quincequic/quince"
	"github.com/quincequic/quince/transport"
	"gopkg.in/yaml.v3"
)

// fileConfig is the subset of quic.Config a deployment YAML file is
// allowed to override.
type fileConfig struct {
	MaxIdleTimeout    string `yaml:"max_idle_timeout"`
	MaxUDPPayloadSize int    `yaml:"max_udp_payload_size"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
}

// newConfig builds a quic.Config with defaults, optionally overridden
// by the YAML file at path. An empty path returns defaults untouched.
func newConfig(path string) (*quic.Config, error) {
	config := &quic.Config{Transport: transport.DefaultConfig()}
	if path == "" {
		return config, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, err
	}
	if fc.MaxIdleTimeout != "" {
		d, err := time.ParseDuration(fc.MaxIdleTimeout)
		if err != nil {
			return nil, err
		}
		config.Transport.MaxIdleTimeout = d
	}
	if fc.MaxUDPPayloadSize > 0 {
		config.Transport.MaxUDPPayloadSize = fc.MaxUDPPayloadSize
	}
	if fc.CertFile != "" && fc.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(fc.CertFile, fc.KeyFile)
		if err != nil {
			return nil, err
		}
		config.TLS.Certificates = []tls.Certificate{cert}
	}
	return config, nil
}
