package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoBox Configuration File
#
# Every key can be overridden by an environment variable, e.g.
#   DITTOBOX_STORAGE_ROOT=/srv/dittobox
#   DITTOBOX_LOGGING_LEVEL=DEBUG
#
# Users and grants live in the metadata index configured under "database".
# Identities listed under "admins" become administrators when their user
# record is created with "dittobox user add".

`

// InitConfig writes a default configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check config file: %w", err)
		}
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return writeConfigFile(path, append([]byte(configHeader), data...))
}
