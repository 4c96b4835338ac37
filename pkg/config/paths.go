package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "recon-toolkit"

// windows: C:\Users\{user}\AppData\Roaming\recon-toolkit
// macOS: ~/Library/Application Support/recon-toolkit
// linux: ~/.config/recon-toolkit
func GetConfigDir() string {
	home, err := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			if err != nil {
				return ""
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, appName)

	case "darwin":
		if err != nil {
			return ""
		}
		return filepath.Join(home, "Library", "Application Support", appName)

	default:
		xdgConfig := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfig == "" {
			if err != nil {
				return ""
			}
			xdgConfig = filepath.Join(home, ".config")
		}
		return filepath.Join(xdgConfig, appName)
	}
}

func GetDefaultConfigPath() string {
	dir := GetConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
