package lconfig

import (
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type TestStruct struct {
	StringVal     string            `env:"STRING_VAL"`
	DefaultValue  string            `env:"NON_EXISTANT" envDefault:"Hello"`
	EnvVal        string            `env:"ENV_VAL"`
	IntVal        int               `env:"INT_VAL"`
	BoolVal       bool              `env:"BOOL_VAL"`
	F32Val        float32           `env:"FLOAT32_VAL"`
	F64Val        float64           `env:"FLOAT64_VAL"`
	F64Array      []float64         `env:"FLOAT64_ARRAY" envSeparator:" "`
	TimeDuration  time.Duration     `env:"TIME_DURATION" envDefault:"5s"`
	BodySize      resource.Quantity `env:"BODY_SIZE" envDefault:"1Mi"`
	StaticHeaders map[string]string `env:"STATIC_HEADERS"`
}

func TestConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTestFiles(dir))

	t.Setenv("ENV_VAL", "env value here")
	t.Setenv("INT_VAL", "456")
	t.Setenv(ConfigDirEnv, dir)

	var test TestStruct
	require.NoError(t, Parse(&test))

	assert.Equal(t, "a string value", test.StringVal)
	assert.Equal(t, "Hello", test.DefaultValue)
	assert.Equal(t, "env value here", test.EnvVal)
	// The process environment wins over the directory
	assert.Equal(t, 456, test.IntVal)
	assert.Equal(t, true, test.BoolVal)
	assert.True(t, math.Abs(float64(3.14-test.F32Val)) < 0.001)
	assert.True(t, math.Abs(2.2e-308-test.F64Val) < 0.001)
	assert.Equal(t, 3, len(test.F64Array))
	assert.Equal(t, time.Second*5, test.TimeDuration)
	assert.Equal(t, int64(2*1024*1024), test.BodySize.Value())
	assert.Equal(t, map[string]string{"x-app": "fitness"}, test.StaticHeaders)
}

func TestParseDefaults(t *testing.T) {
	t.Setenv(ConfigDirEnv, "")

	var test TestStruct
	require.NoError(t, Parse(&test))

	assert.Equal(t, "Hello", test.DefaultValue)
	assert.Equal(t, int64(1024*1024), test.BodySize.Value())
}

func TestConfigDirMissing(t *testing.T) {
	t.Setenv(ConfigDirEnv, filepath.Join(t.TempDir(), "missing"))

	var test TestStruct
	assert.Error(t, Parse(&test))
}

func TestLoadStaticYamlConfig(t *testing.T) {
	filesystem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(filesystem, "/secrets/influx.yaml", []byte("token: abc\nusername: coach\n"), 0600))

	target := struct {
		Token    string `json:"token"`
		Username string `json:"username"`
		Org      string `json:"org"`
	}{Org: "kept"}

	require.NoError(t, LoadStaticYamlConfig("/secrets/influx.yaml", filesystem, &target))
	assert.Equal(t, "abc", target.Token)
	assert.Equal(t, "coach", target.Username)
	assert.Equal(t, "kept", target.Org)

	assert.Error(t, LoadStaticYamlConfig("/secrets/missing.yaml", filesystem, &target))
	assert.NoError(t, OverlayYamlConfig("", &target))
}

func writeTestFiles(dir string) error {
	files := map[string]string{
		"STRING_VAL":     "a string value",
		"INT_VAL":        "123",
		"BOOL_VAL":       "true",
		"FLOAT32_VAL":    "3.14",
		"FLOAT64_VAL":    "2.2E-308",
		"FLOAT64_ARRAY":  "0.0 0.1 0.2",
		"TIME_DURATION":  "5s",
		"BODY_SIZE":      "2Mi\n",
		"STATIC_HEADERS": `{"x-app": "fitness"}`,
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0600); err != nil {
			return err
		}
	}
	return nil
}
