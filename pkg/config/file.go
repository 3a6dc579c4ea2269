package lconfig

import (
	"github.com/ghodss/yaml"
	"github.com/spf13/afero"
	"io"
	"os"
)

// LoadStaticYamlConfig reads a YAML (or JSON) document into target. Fields missing in the
// document keep the value already present in target.
func LoadStaticYamlConfig(filename string, filesystem afero.Fs, target interface{}) error {
	file, err := filesystem.OpenFile(filename, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(content, target)
}

// OverlayYamlConfig loads filename over target when filename is set. It is used for the
// credential files mounted next to the service.
func OverlayYamlConfig(filename string, target interface{}) error {
	if filename == "" {
		return nil
	}
	return LoadStaticYamlConfig(filename, afero.NewOsFs(), target)
}
