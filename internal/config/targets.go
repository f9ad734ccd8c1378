package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultPort is the standard Source query port.
const DefaultPort = 27015

// Target is one server to query.
type Target struct {
	Name    string `yaml:"name" json:"name,omitempty"`
	Address string `yaml:"address" json:"address"`
}

// targetsFile is the layout of the --targets YAML file:
//
//	servers:
//	  - name: EU 1
//	    address: 203.0.113.7:27015
type targetsFile struct {
	Servers []Target `yaml:"servers"`
}

// LoadTargets reads a YAML target list. Addresses are normalized to host:port.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file targetsFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %s: %w", path, err)
	}

	targets := make([]Target, 0, len(file.Servers))
	for i, t := range file.Servers {
		addr, err := NormalizeAddress(t.Address)
		if err != nil {
			return nil, fmt.Errorf("target #%d (%s): %w", i+1, t.Name, err)
		}
		t.Address = addr
		targets = append(targets, t)
	}

	return targets, nil
}

// Targets returns positional addresses followed by the entries of the targets file.
func (c *Config) Targets() ([]Target, error) {
	var targets []Target
	for _, a := range c.Args.Addresses {
		addr, err := NormalizeAddress(a)
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{Address: addr})
	}

	if c.Query.Targets != "" {
		fromFile, err := LoadTargets(c.Query.Targets)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	return targets, nil
}

// NormalizeAddress returns address as host:port, adding DefaultPort when the port is missing.
func NormalizeAddress(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("empty address")
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		// bare host or IPv6 literal without port
		if ip := net.ParseIP(address); ip != nil || !strings.Contains(address, ":") {
			return net.JoinHostPort(address, strconv.Itoa(DefaultPort)), nil
		}
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid port in address %q", address)
	}
	if host == "" {
		return "", fmt.Errorf("missing host in address %q", address)
	}

	return net.JoinHostPort(host, port), nil
}
