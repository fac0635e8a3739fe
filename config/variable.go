package config

import "fmt"

type Variable struct {
	Name    string `hcl:"name,label"`
	Default string `hcl:"default,optional"`
	Secret  bool   `hcl:"secret,optional"`
}

func (v *Variable) Validate() error {
	if v.Secret && v.Default != "" {
		return fmt.Errorf("Invalid secret; secret variable '%s' cannot have a default value set in config, use `threadpilot vars set` instead", v.Name)
	}
	return nil
}

// Display returns the value for printing, masking secrets
func (v *Variable) Display(value string) string {
	if v.Secret && value != "" {
		return "********"
	}
	return value
}
