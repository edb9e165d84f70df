package loader

import (
	_ "embed"
	"fmt"
	"os"

	"linkwatch/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed default_topology.yaml
var defaultTopology []byte

// TopologyYAML represents the YAML file structure
type TopologyYAML struct {
	Version     string              `yaml:"version"`
	Devices     []DeviceYAML        `yaml:"devices"`
	Edges       []EdgeYAML          `yaml:"edges"`
	Attachments map[string][]string `yaml:"attachments,omitempty"`
	Uplinks     map[string]string   `yaml:"uplinks,omitempty"`
}

// DeviceYAML represents a device in YAML format
type DeviceYAML struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	Address   string `yaml:"address"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	Transport string `yaml:"transport,omitempty"`
	Port      int    `yaml:"port,omitempty"`
}

// EdgeYAML represents an edge in YAML format
type EdgeYAML struct {
	A      string `yaml:"a"`
	B      string `yaml:"b"`
	Subnet string `yaml:"subnet,omitempty"`
}

// Default returns the built-in lab topology
func Default() (*domain.Topology, error) {
	return ParseYAML(defaultTopology)
}

// LoadYAML loads a topology from a YAML file
func LoadYAML(path string) (*domain.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseYAML(data)
}

// Load reads the topology at path, or the built-in one when path is empty
func Load(path string) (*domain.Topology, error) {
	if path == "" {
		return Default()
	}
	return LoadYAML(path)
}

// ParseYAML parses and validates a topology from YAML bytes
func ParseYAML(data []byte) (*domain.Topology, error) {
	var yamlData TopologyYAML
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	topo, err := convertYAMLToTopology(&yamlData)
	if err != nil {
		return nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return topo, nil
}

func convertYAMLToTopology(y *TopologyYAML) (*domain.Topology, error) {
	topo := domain.NewTopology()

	for _, d := range y.Devices {
		kind, err := domain.ParseDeviceKind(d.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: device %s: %v", domain.ErrInvalidTopology, d.Name, err)
		}

		device := domain.Device{
			Name:    d.Name,
			Kind:    kind,
			Address: d.Address,
		}

		// Credentials and transport only mean something for routers
		if kind == domain.DeviceKindRouter {
			password, err := resolvePassword(d.Password, SecretDirs)
			if err != nil {
				return nil, fmt.Errorf("%w: router %s: %v", domain.ErrInvalidTopology, d.Name, err)
			}
			device.Credentials = &domain.Credentials{
				Username: d.Username,
				Password: password,
			}
			device.Transport = domain.Transport(d.Transport)
			device.Port = d.Port
		}

		topo.AddDevice(device)
	}

	for _, e := range y.Edges {
		topo.AddEdge(e.A, e.B, e.Subnet)
	}

	for parent, children := range y.Attachments {
		topo.Attach(parent, children...)
	}

	for sw, router := range y.Uplinks {
		topo.SetUplink(sw, router)
	}

	return topo, nil
}

// ExportYAML exports a topology to YAML format. Passwords are never written.
func ExportYAML(topo *domain.Topology) ([]byte, error) {
	yamlData := &TopologyYAML{
		Version:     "1",
		Attachments: make(map[string][]string, len(topo.Attachments)),
		Uplinks:     make(map[string]string, len(topo.Uplinks)),
	}

	for _, d := range topo.Devices {
		dy := DeviceYAML{
			Name:    d.Name,
			Kind:    string(d.Kind),
			Address: d.Address,
		}
		if d.Credentials != nil {
			dy.Username = d.Credentials.Username
		}
		if d.IsRouter() {
			dy.Transport = string(d.Transport)
			dy.Port = d.Port
		}
		yamlData.Devices = append(yamlData.Devices, dy)
	}

	for _, e := range topo.Edges {
		yamlData.Edges = append(yamlData.Edges, EdgeYAML{A: e.A, B: e.B, Subnet: e.Subnet})
	}

	for parent, children := range topo.Attachments {
		yamlData.Attachments[parent] = append([]string(nil), children...)
	}
	for sw, router := range topo.Uplinks {
		yamlData.Uplinks[sw] = router
	}

	return yaml.Marshal(yamlData)
}
