package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// topLevelConfig is the JSON object described in spec §6.1, located by
// discoverConfigFile.
type topLevelConfig struct {
	WebPort uint16 `json:"web_port"`
	WSPort  uint16 `json:"ws_port"`
}

const configFileName = "stabping_config.json"

// discoverConfigFile finds and decodes stabping_config.json. If override is
// non-empty it is used directly; otherwise the original implementation's
// search order is followed: the current directory, the user's config
// directory, /etc, and the directory containing the running executable.
func discoverConfigFile(override string) (*topLevelConfig, error) {
	path := override
	if path == "" {
		var err error
		path, err = findConfigFile()
		if err != nil {
			return nil, err
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var c topLevelConfig
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

func findConfigFile() (string, error) {
	var dirs []string

	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if cfg, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, cfg)
	}
	dirs = append(dirs, "/etc")
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		p := filepath.Join(dir, configFileName)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found in %v", configFileName, dirs)
}
