package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/kadirpekel/a2aprobe/pkg/config/provider"
)

var envFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads .env.local and .env from the working directory.
// Variables already set in the environment are not overridden.
func LoadEnvFiles() error {
	return loadEnvFilesIn("")
}

// LoadEnvFilesForConfig loads .env files from the working directory and
// from the directory holding configPath. Remote sources only get the former.
func LoadEnvFilesForConfig(configPath string) error {
	if err := LoadEnvFiles(); err != nil {
		return err
	}
	if configPath == "" || configPath == "-" || provider.IsRemote(configPath) {
		return nil
	}
	dir := filepath.Dir(configPath)
	if dir == "." {
		return nil
	}
	return loadEnvFilesIn(dir)
}

func loadEnvFilesIn(dir string) error {
	for _, name := range envFiles {
		file := name
		if dir != "" {
			file = filepath.Join(dir, name)
		}
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}
