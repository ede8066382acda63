package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the on-disk YAML shape for extension catalogs.
type CatalogFile struct {
	Version int             `yaml:"version"`
	Blocks  []catalogRecord `yaml:"blocks"`
}

// catalogRecord mirrors BlockDefinition with ports nested the way catalog
// files write them.
type catalogRecord struct {
	BlockDefinition `yaml:",inline"`
	Ports           struct {
		Inputs  []Port `yaml:"inputs"`
		Outputs []Port `yaml:"outputs"`
	} `yaml:"ports"`
}

// LoadCatalog reads a YAML catalog file and registers every block it
// declares. Registration stops at the first conflicting id.
func LoadCatalog(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(b)
}

// ParseCatalog registers blocks from raw YAML catalog bytes.
func ParseCatalog(b []byte) error {
	var file CatalogFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if file.Version != 1 {
		return fmt.Errorf("unsupported catalog version: %d", file.Version)
	}
	for _, rec := range file.Blocks {
		def := rec.BlockDefinition
		def.PortsIn = rec.Ports.Inputs
		def.PortsOut = rec.Ports.Outputs
		if err := validateDefinition(&def); err != nil {
			return fmt.Errorf("block %s: %w", def.ID, err)
		}
		if err := Register(def); err != nil {
			return err
		}
	}
	return nil
}

func validateDefinition(def *BlockDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("missing id")
	}
	for _, in := range def.Inputs {
		switch in.Type {
		case Number, Text, Boolean, Variable:
		default:
			return fmt.Errorf("input %s: invalid value type %q", in.Name, in.Type)
		}
	}
	for _, p := range append(append([]Port{}, def.PortsIn...), def.PortsOut...) {
		switch p.Type {
		case Number, Boolean, Flow, Any:
		default:
			return fmt.Errorf("port %s: invalid port type %q", p.Label, p.Type)
		}
	}
	switch def.Shape {
	case "", Statement, Reporter:
	default:
		return fmt.Errorf("invalid shape %q", def.Shape)
	}
	return nil
}
