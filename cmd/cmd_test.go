package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwaniclecvdoc/vc-backend-scale/cmd"
	"github.com/ashwaniclecvdoc/vc-backend-scale/media"
	"github.com/ashwaniclecvdoc/vc-backend-scale/metric"
	"github.com/ashwaniclecvdoc/vc-backend-scale/signal"
)

// clearEnv hides the variables the configuration reads from the test process.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "SFU_SIGNAL_PORT", "SFU_METRIC_PORT", "SFU_MEDIA_ANNOUNCED_IP"} {
		t.Setenv(key, "")
	}
}

// parse parses the command-line arguments and returns the configuration.
// It returns an error if the arguments are invalid.
func TestParseArgs(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		args    []string
		want    signal.Config
		wantErr bool
	}{
		{
			name: "given valid args when parsed then return config",
			args: []string{"-port=8080", "-key=/path/to/key.pem", "-cert=/path/to/cert.pem"},
			want: signal.Config{Port: 8080, KeyFile: "/path/to/key.pem", CertFile: "/path/to/cert.pem"},
		},
		{
			name: "given missing port when parsed then return config with default port",
			args: []string{"-key=/path/to/key.pem", "-cert=/path/to/cert.pem"},
			want: signal.Config{Port: signal.DefaultPort, KeyFile: "/path/to/key.pem", CertFile: "/path/to/cert.pem"},
		},
		{
			name: "given empty key file when parsed then return config with empty key file",
			args: []string{"-port=8080", "-cert=/path/to/cert.pem"},
			want: signal.Config{Port: 8080, KeyFile: "", CertFile: "/path/to/cert.pem"},
		},
		{
			name: "given debug flag when parsed then return config in debug mode",
			args: []string{"-debug"},
			want: signal.Config{Port: signal.DefaultPort, Debug: true},
		},
		{
			name: "given no args when parsed then return config",
			args: []string{},
			want: signal.Config{Port: signal.DefaultPort, KeyFile: "", CertFile: ""},
		},
		{
			name:    "given extra args when parsed then return error",
			args:    []string{"-port=8080", "-key=/path/to/key.pem", "-cert=/path/to/cert.pem", "extra"},
			wantErr: true,
		},
		{
			name:    "given invalid flag format when parsed then return error",
			args:    []string{"-extra"},
			wantErr: true,
		},
		{
			name:    "given port flag without value when parsed then return error",
			args:    []string{"-port"},
			wantErr: true,
		},
		{
			name:    "given missing config file when parsed then return error",
			args:    []string{"-config=/non/existent/sfu.yaml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer
			got, err := cmd.Parse(&output, tt.args)
			if tt.wantErr {
				assert.Errorf(t, err, "parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Truef(t, got.Signal.IsSame(tt.want), "parse() = %v, want %v", got.Signal, tt.want)
		})
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)

	got, err := cmd.Parse(&bytes.Buffer{}, nil)
	require.NoError(t, err)

	assert.Equal(t, signal.DefaultPingPeriod, got.Signal.PingPeriod)
	assert.Equal(t, signal.DefaultPongWait, got.Signal.PongWait)
	assert.Equal(t, media.DefaultMinUdpPort, got.Media.MinUdpPort)
	assert.Equal(t, media.DefaultMaxUdpPort, got.Media.MaxUdpPort)
	assert.Len(t, got.Media.Codecs, 2)
	assert.Equal(t, metric.DefaultMetricsPort, got.Metric.Port)
	assert.Equal(t, metric.DefaultMetricsPath, got.Metric.Path)
}

func TestParseSources(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sfu.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
signal:
  port: 7000
  ping_period: 10s
  pong_wait: 30s
media:
  announced_ip: 203.0.113.10
  min_udp_port: "41000"
  max_udp_port: "41100"
metric:
  port: 9300
coordinator:
  enforce_unique_names: true
`), 0o600))

	t.Run("given config file when parsed then return file values", func(t *testing.T) {
		clearEnv(t)

		got, err := cmd.Parse(&bytes.Buffer{}, []string{"-config=" + file})
		require.NoError(t, err)
		assert.Equal(t, 7000, got.Signal.Port)
		assert.Equal(t, 10*time.Second, got.Signal.PingPeriod)
		assert.Equal(t, 30*time.Second, got.Signal.PongWait)
		assert.Equal(t, "203.0.113.10", got.Media.AnnouncedIP)
		assert.Equal(t, "41000", got.Media.MinUdpPort)
		assert.Equal(t, "41100", got.Media.MaxUdpPort)
		assert.Equal(t, 9300, got.Metric.Port)
		assert.True(t, got.Coordinator.EnforceUniqueNames)
	})

	t.Run("given PORT env when parsed then env overrides file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "7100")

		got, err := cmd.Parse(&bytes.Buffer{}, []string{"-config=" + file})
		require.NoError(t, err)
		assert.Equal(t, 7100, got.Signal.Port)
	})

	t.Run("given prefixed env when parsed then env overrides file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SFU_METRIC_PORT", "9400")

		got, err := cmd.Parse(&bytes.Buffer{}, []string{"-config=" + file})
		require.NoError(t, err)
		assert.Equal(t, 9400, got.Metric.Port)
	})

	t.Run("given flags and env when parsed then flags override env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "7100")

		got, err := cmd.Parse(&bytes.Buffer{}, []string{
			"-config=" + file, "-port=7200", "-metrics-port=0", "-announced-ip=198.51.100.1",
			"-rtc-min-port=42000", "-rtc-max-port=42010",
		})
		require.NoError(t, err)
		assert.Equal(t, 7200, got.Signal.Port)
		assert.Equal(t, 0, got.Metric.Port)
		assert.Equal(t, "198.51.100.1", got.Media.AnnouncedIP)
		assert.Equal(t, "42000", got.Media.MinUdpPort)
		assert.Equal(t, "42010", got.Media.MaxUdpPort)
	})
}

// Helper function to create a temporary file and return its path
func createTempFile() (string, error) {
	tmpFile, err := os.CreateTemp("", "testfile")
	if err != nil {
		return "", err
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return "", closeErr
	}
	return tmpFile.Name(), nil
}

// TestSetupConfig tests the SetupConfig function, including handling errors from parse and Config.Validate.
func TestSetupConfig(t *testing.T) {
	clearEnv(t)

	keyFile, err := createTempFile()
	require.NoError(t, err)
	certFile, err := createTempFile()
	require.NoError(t, err)

	// Clean up temporary files after the test
	defer func() {
		_ = os.Remove(keyFile)
		_ = os.Remove(certFile)
	}()

	tests := []struct {
		name                string
		args                []string
		expected            signal.Config
		expectParseError    bool
		expectValidateError bool
	}{
		{
			name: "given valid args when setup config then return valid config",
			args: []string{"-port=8080", "-key=" + keyFile, "-cert=" + certFile},
			expected: signal.Config{
				Port:     8080,
				KeyFile:  keyFile,
				CertFile: certFile,
			},
		},
		{
			name: "given no args when setup config then return default config",
			args: []string{},
			expected: signal.Config{
				Port: signal.DefaultPort,
			},
		},
		{
			name:                "given invalid port value when setup config then return error",
			args:                []string{"-port=70000"},
			expectValidateError: true,
		},
		{
			name:                "given non-existent cert file when setup config then return error",
			args:                []string{"-port=8080", "-key=" + keyFile, "-cert=/non/existent/cert.pem"},
			expectValidateError: true,
		},
		{
			name:                "given non-existent key file when setup config then return error",
			args:                []string{"-port=8080", "-cert=" + certFile, "-key=/non/existent/key.pem"},
			expectValidateError: true,
		},
		{
			name:             "given invalid flag format when setup config then return error",
			args:             []string{"-extra"},
			expectParseError: true,
		},
		{
			name:                "given reversed rtc port range when setup config then return error",
			args:                []string{"-rtc-min-port=45000", "-rtc-max-port=44000"},
			expectValidateError: true,
		},
		{
			name:                "given invalid announced ip when setup config then return error",
			args:                []string{"-announced-ip=not-an-ip"},
			expectValidateError: true,
		},
		{
			name:                "given metrics port equal to signal port when setup config then return error",
			args:                []string{"-port=8080", "-metrics-port=8080"},
			expectValidateError: true,
		},
		{
			name:                "given non-empty key file and empty cert file when setup config then return error",
			args:                []string{"-port=8080", "-key=" + keyFile},
			expectValidateError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.NewBuffer(make([]byte, 1024))

			config, err := cmd.SetupConfig(buf, tt.args)

			if tt.expectParseError || tt.expectValidateError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Truef(t, config.Signal.IsSame(tt.expected), "SetupConfig() = %v, expected %v", config.Signal, tt.expected)
		})
	}
}
