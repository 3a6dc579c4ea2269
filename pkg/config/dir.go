package lconfig

import (
	"fmt"
	"github.com/spf13/afero"
	"io/fs"
	"strings"
)

// ConfigDir exposes a directory of files as environment variables, one variable per file
// named after the file.
type ConfigDir struct {
	dirPath string
	fs      afero.Fs
}

func NewConfigDir(dirPath string) (*ConfigDir, error) {
	if dirPath == "" {
		return nil, fmt.Errorf("empty config dir path")
	}
	return newConfigDirFs(dirPath, afero.NewBasePathFs(afero.NewOsFs(), dirPath))
}

func newConfigDirFs(dirPath string, filesystem afero.Fs) (*ConfigDir, error) {
	configDir := &ConfigDir{
		dirPath: dirPath,
		fs:      filesystem,
	}

	stat, err := configDir.fs.Stat(".")
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("config dir path %s is not a directory", dirPath)
	}
	return configDir, nil
}

func (config *ConfigDir) EnvironmentMap() (map[string]string, error) {
	envMap := make(map[string]string)

	err := afero.Walk(config.fs, ".", func(path string, fileInfo fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fileInfo.IsDir() {
			return nil
		}
		name := fileInfo.Name()
		if _, alreadyExists := envMap[name]; alreadyExists {
			return fmt.Errorf("duplicate configuration value %s", name)
		}
		contents, err := afero.ReadFile(config.fs, path)
		if err != nil {
			return err
		}
		envMap[name] = strings.TrimSpace(string(contents))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return envMap, nil
}
