package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DeviceKind represents the role of a monitored device
type DeviceKind string

const (
	DeviceKindRouter DeviceKind = "router"
	DeviceKindSwitch DeviceKind = "switch"
	DeviceKindHost   DeviceKind = "host"
	DeviceKindVM     DeviceKind = "vm"
)

// ParseDeviceKind converts a string to a DeviceKind.
// "pc" is accepted as an alias for host.
func ParseDeviceKind(s string) (DeviceKind, error) {
	switch s {
	case "router":
		return DeviceKindRouter, nil
	case "switch":
		return DeviceKindSwitch, nil
	case "host", "pc":
		return DeviceKindHost, nil
	case "vm":
		return DeviceKindVM, nil
	default:
		return "", fmt.Errorf("unknown device kind %q", s)
	}
}

// IsEndpoint reports whether devices of this kind are hosts or virtual machines
func (k DeviceKind) IsEndpoint() bool {
	return k == DeviceKindHost || k == DeviceKindVM
}

// Transport selects the command-line protocol used to reach a router
type Transport string

const (
	TransportTelnet Transport = "telnet"
	TransportSSH    Transport = "ssh"
)

// DefaultPort returns the well-known port for the transport
func (t Transport) DefaultPort() int {
	if t == TransportSSH {
		return 22
	}
	return 23
}

// Credentials holds the login for a router's command-line session
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"-" yaml:"password"`
}

// Device represents a monitored network node. Devices are loaded once and
// never mutated afterwards.
type Device struct {
	Name    string     `json:"name"`
	Kind    DeviceKind `json:"kind"`
	Address string     `json:"address"`

	// Router-only fields
	Credentials *Credentials `json:"credentials,omitempty"`
	Transport   Transport    `json:"transport,omitempty"`
	Port        int          `json:"port,omitempty"`
}

// IsRouter reports whether the device is a router
func (d Device) IsRouter() bool {
	return d.Kind == DeviceKindRouter
}

// SessionAddr returns host:port for the router's command-line session
func (d Device) SessionAddr() string {
	port := d.Port
	if port == 0 {
		port = d.SessionTransport().DefaultPort()
	}
	return net.JoinHostPort(d.Address, strconv.Itoa(port))
}

// SessionTransport returns the configured transport, defaulting to telnet
func (d Device) SessionTransport() Transport {
	if d.Transport == "" {
		return TransportTelnet
	}
	return d.Transport
}

// Validate checks the device for required fields
func (d Device) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("device name is required")
	}
	if d.Kind == "" {
		return fmt.Errorf("device %s: kind is required", d.Name)
	}
	if strings.Contains(d.Name, edgeSeparator) {
		return fmt.Errorf("device %s: name must not contain %q", d.Name, edgeSeparator)
	}
	if d.Address == "" {
		return fmt.Errorf("device %s: address is required", d.Name)
	}
	if d.IsRouter() {
		if d.Credentials == nil || d.Credentials.Username == "" {
			return fmt.Errorf("router %s: username is required", d.Name)
		}
		switch d.SessionTransport() {
		case TransportTelnet, TransportSSH:
		default:
			return fmt.Errorf("router %s: unsupported transport %q", d.Name, d.Transport)
		}
	}
	return nil
}

// Public returns a copy of the device with credentials stripped
func (d Device) Public() Device {
	d.Credentials = nil
	return d
}
