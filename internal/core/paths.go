package core

import (
	"os"
	"path/filepath"
)

type Paths struct {
	HomeDir      string
	DataDir      string
	SpecsDir     string
	LogFile      string
	HistoryFile  string
	SettingsFile string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths == nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}

		defaultPaths = &Paths{
			HomeDir:      homeDir,
			DataDir:      filepath.Join(homeDir, ".glint"),
			SpecsDir:     filepath.Join(homeDir, ".glint", "specs"),
			LogFile:      filepath.Join(homeDir, ".glint", "glint.log"),
			HistoryFile:  filepath.Join(homeDir, ".glint", "history.db"),
			SettingsFile: filepath.Join(homeDir, ".glint", "settings.yaml"),
		}

		err = os.MkdirAll(defaultPaths.SpecsDir, 0755)
		if err != nil {
			panic(err)
		}
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func SpecsDir() string {
	ensureDefaultPaths()
	return defaultPaths.SpecsDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

func HistoryFile() string {
	ensureDefaultPaths()
	return defaultPaths.HistoryFile
}

func SettingsFile() string {
	ensureDefaultPaths()
	return defaultPaths.SettingsFile
}

// ResetPaths clears the cached paths, forcing them to be reinitialized.
// This is primarily used for testing purposes.
func ResetPaths() {
	defaultPaths = nil
}
