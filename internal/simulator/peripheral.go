package simulator

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/srg/bgatt/internal/bledb"
	"github.com/srg/bgatt/internal/profile"
)

// Peripheral describes the simulated device. It is usually loaded from a YAML (or
// JSON) file:
//
//	name: Thunder Sense
//	address: c0:11:22:33:44:55
//	firmware: 1.3.2
//	services:
//	  - uuid: "180f"
//	    characteristics:
//	      - uuid: "2a19"
//	        properties: read,notify
//	        value: "55"
//	        notify_every: 1s
//	  - uuid: 6e400001-b5a3-f393-e0a9-e50e24dcca9e
//	    open_end: true
type Peripheral struct {
	Name        string          `yaml:"name" json:"name"`
	Address     profile.MAC     `yaml:"address" json:"address"`
	AddressType byte            `yaml:"address_type" json:"address_type"`
	RSSI        int8            `yaml:"rssi" json:"rssi"`
	Connection  uint8           `yaml:"connection" json:"connection"`
	Firmware    string          `yaml:"firmware" json:"firmware"`
	Services    []ServiceDef    `yaml:"services" json:"services"`
	Advertisers []AdvertiserDef `yaml:"advertisers" json:"advertisers"`
}

// ServiceDef is one primary service.
type ServiceDef struct {
	UUID string `yaml:"uuid" json:"uuid"`
	// Handle places the service declaration; 0 follows the previous service. Handles
	// below the next free one are ignored.
	Handle uint16 `yaml:"handle" json:"handle"`
	// OpenEnd makes service discovery report the group end as 0xFFFF.
	OpenEnd         bool                `yaml:"open_end" json:"open_end"`
	Characteristics []CharacteristicDef `yaml:"characteristics" json:"characteristics"`
}

// CharacteristicDef is one characteristic. Value is hex.
type CharacteristicDef struct {
	UUID        string          `yaml:"uuid" json:"uuid"`
	Properties  string          `yaml:"properties" json:"properties"`
	Value       string          `yaml:"value" json:"value"`
	Descriptors []DescriptorDef `yaml:"descriptors" json:"descriptors"`
	// NotifyEvery makes Serve push a notification at this period once enabled. The last
	// value byte is incremented each time.
	NotifyEvery time.Duration `yaml:"notify_every" json:"notify_every"`
}

// DescriptorDef is one descriptor. Only 16-bit types are supported.
type DescriptorDef struct {
	UUID  string `yaml:"uuid" json:"uuid"`
	Value string `yaml:"value" json:"value"`
}

// AdvertiserDef is an extra device that only shows up in scans.
type AdvertiserDef struct {
	Name    string      `yaml:"name" json:"name"`
	Address profile.MAC `yaml:"address" json:"address"`
	RSSI    int8        `yaml:"rssi" json:"rssi"`
}

// LoadPeripheral reads a peripheral description. JSON is accepted as well since it is a
// subset of YAML.
func LoadPeripheral(path string) (*Peripheral, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read peripheral file: %w", err)
	}
	return ParsePeripheral(data)
}

// ParsePeripheral decodes and validates a peripheral description.
func ParsePeripheral(data []byte) (*Peripheral, error) {
	var p Peripheral
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse peripheral: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks UUIDs and hex values and fills defaults.
func (p *Peripheral) Validate() error {
	if p.Firmware == "" {
		p.Firmware = "1.3.2"
	}
	if p.RSSI == 0 {
		p.RSSI = -60
	}
	for i, s := range p.Services {
		if _, err := bledb.ParseUUID(s.UUID); err != nil {
			return fmt.Errorf("service %d: %w", i, err)
		}
		for j, c := range s.Characteristics {
			if _, err := bledb.ParseUUID(c.UUID); err != nil {
				return fmt.Errorf("service %s characteristic %d: %w", s.UUID, j, err)
			}
			if _, err := decodeHex(c.Value); err != nil {
				return fmt.Errorf("characteristic %s value: %w", c.UUID, err)
			}
			for _, d := range c.Descriptors {
				parsed, err := bledb.ParseUUID(d.UUID)
				if err != nil {
					return fmt.Errorf("characteristic %s descriptor: %w", c.UUID, err)
				}
				if !parsed.Short {
					return fmt.Errorf("characteristic %s descriptor %s: only 16-bit descriptor types are supported", c.UUID, d.UUID)
				}
				if _, err := decodeHex(d.Value); err != nil {
					return fmt.Errorf("descriptor %s value: %w", d.UUID, err)
				}
			}
		}
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	return hex.DecodeString(clean)
}
