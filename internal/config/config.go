// Package config loads flashmapctl's configuration, following the
// coordinator's LoadConfig/DefaultConfig pattern: defaults first, then a
// YAML file unmarshaled on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend selects which flash.Driver implementation flashmapctl wires up.
type Backend string

const (
	BackendMock Backend = "mock"
	BackendFile Backend = "file"
	BackendSPI  Backend = "spi"
)

// Config is the top-level configuration structure for flashmapctl.
type Config struct {
	// Flash selects and configures the storage backend.
	Flash FlashConfig `yaml:"flash"`
	// Region is the byte range within the backend the log occupies.
	Region RegionConfig `yaml:"region"`
}

// FlashConfig configures the flash.Driver backend.
type FlashConfig struct {
	Backend Backend `yaml:"backend"`

	// Mock configures the in-RAM backend.
	Mock MockConfig `yaml:"mock"`
	// File configures the file-backed backend.
	File FileConfig `yaml:"file"`
	// SPI configures the real hardware backend.
	SPI SPIConfig `yaml:"spi"`
}

// MockConfig configures flash/mockflash.
type MockConfig struct {
	SizeBytes uint32 `yaml:"size_bytes"`
	WriteSize uint32 `yaml:"write_size"`
	EraseSize uint32 `yaml:"erase_size"`
}

// FileConfig configures flash/filestore.
type FileConfig struct {
	Path      string `yaml:"path"`
	SizeBytes uint32 `yaml:"size_bytes"`
	WriteSize uint32 `yaml:"write_size"`
	EraseSize uint32 `yaml:"erase_size"`
}

// SPIConfig configures flash/spiflash.
type SPIConfig struct {
	Port       string `yaml:"port"`
	ChipSelect string `yaml:"chip_select"`
	WriteSize  uint32 `yaml:"write_size"`
	EraseSize  uint32 `yaml:"erase_size"`
}

// RegionConfig is the half-open byte range [Start, End) within the
// backend the log occupies.
type RegionConfig struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

// DefaultConfig returns the configuration flashmapctl uses when no YAML
// file overrides a field: a 4-page mock flash, matching spec scenario S1.
func DefaultConfig() *Config {
	return &Config{
		Flash: FlashConfig{
			Backend: BackendMock,
			Mock: MockConfig{
				SizeBytes: 1024,
				WriteSize: 4,
				EraseSize: 256,
			},
		},
		Region: RegionConfig{
			Start: 0,
			End:   1024,
		},
	}
}

// LoadConfig reads path, then unmarshals it over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
