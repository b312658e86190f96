package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the projdock home directory
const HomeEnv = "PROJDOCK_HOME"

// GetHome returns the projdock home directory
// Priority order:
//  1. PROJDOCK_HOME environment variable (if set)
//  2. ~/.projdock
//  3. ./.projdock when the user home cannot be determined
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	return getHome(os.Getenv(HomeEnv), os.UserHomeDir, os.Getwd)
}

func getHome(env string, userHome, cwd func() (string, error)) (string, error) {
	home := env
	if home == "" {
		if dir, err := userHome(); err == nil && dir != "" {
			home = filepath.Join(dir, ".projdock")
		} else {
			wd, err := cwd()
			if err != nil {
				return "", fmt.Errorf("get working directory: %w", err)
			}
			home = filepath.Join(wd, ".projdock")
		}
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create projdock home directory: %w", err)
	}
	return home, nil
}

// GetConfigPath returns <home>/config.yaml
func GetConfigPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, FileName), nil
}
