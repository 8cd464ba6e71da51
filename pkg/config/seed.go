package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedUser is one account listed in the bootstrap seed file.
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeedUsers reads the YAML seed file:
//
//	users:
//	  - username: carol
//	    password: change-me
//	    role: admin
func LoadSeedUsers(path string) ([]SeedUser, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeedUsers(raw)
}

// ParseSeedUsers decodes seed YAML and rejects incomplete entries.
func ParseSeedUsers(raw []byte) ([]SeedUser, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, u := range file.Users {
		if strings.TrimSpace(u.Username) == "" || u.Password == "" || strings.TrimSpace(u.Role) == "" {
			return nil, fmt.Errorf("seed user %d: username, password and role are required", i)
		}
	}
	return file.Users, nil
}
