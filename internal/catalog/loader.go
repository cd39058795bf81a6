package catalog

import (
	"fmt"

	"github.com/spf13/viper"
)

// defaultOverrideRole is the top-level role allowed to settle any item.
const defaultOverrideRole = "super_admin"

// Load reads a rule catalog from a YAML file and validates it.
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rule catalog: %w", err)
	}

	var c Catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule catalog: %w", err)
	}

	if c.OverrideRole == "" {
		c.OverrideRole = defaultOverrideRole
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule catalog: %w", err)
	}

	return &c, nil
}
