package router

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed operations.yaml
var catalogYAML []byte

// Catalog describes the operations a router exposes together with the JSON
// schema of each payload.
type Catalog struct {
	Component  string      `yaml:"component" json:"component"`
	Version    string      `yaml:"version" json:"version"`
	Operations []Operation `yaml:"operations" json:"operations"`
}

// Operation is one catalog entry.
type Operation struct {
	ID          string         `yaml:"id" json:"id"`
	Entity      string         `yaml:"entity" json:"entity"`
	Kind        string         `yaml:"kind" json:"kind"`
	Description string         `yaml:"description" json:"description"`
	Result      string         `yaml:"result" json:"result"`
	Payload     map[string]any `yaml:"payload" json:"payload"`
}

// ParseCatalog decodes a YAML catalog. Operation ids must be non-empty and
// unique.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse operation catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Operations))
	for i, op := range c.Operations {
		if op.ID == "" {
			return nil, fmt.Errorf("operation catalog entry %d has no id", i)
		}
		if _, dup := seen[op.ID]; dup {
			return nil, fmt.Errorf("operation catalog lists %q twice", op.ID)
		}
		seen[op.ID] = struct{}{}
	}
	return &c, nil
}

// DefaultCatalog returns the embedded catalog of the nine message operations.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(catalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (Operation, bool) {
	for _, op := range c.Operations {
		if op.ID == id {
			return op, true
		}
	}
	return Operation{}, false
}

// IDs returns the operation ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Operations))
	for _, op := range c.Operations {
		ids = append(ids, op.ID)
	}
	return ids
}
