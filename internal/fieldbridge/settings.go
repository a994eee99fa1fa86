package fieldbridge

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vexide/autons/internal/config"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8765
	// DefaultMaxBodyBytes caps one event payload. Real events are a few hundred bytes.
	DefaultMaxBodyBytes int64 = 64 << 10
	// DefaultTimeout bounds reading a request and writing its response.
	DefaultTimeout = 5 * time.Second
)

// Settings configures the bridge listener.
type Settings struct {
	Enabled      bool
	Host         string
	Port         int
	MaxBodyBytes int64
	Timeout      time.Duration
}

// envOverrides are applied after the project config, in order.
var envOverrides = []struct {
	key   string
	apply func(*Settings, string)
}{
	{"AUTONS_BRIDGE_ENABLED", func(s *Settings, v string) {
		if enabled, err := strconv.ParseBool(v); err == nil {
			s.Enabled = enabled
		}
	}},
	{"AUTONS_BRIDGE_HOST", func(s *Settings, v string) { s.Host = v }},
	{"AUTONS_BRIDGE_PORT", func(s *Settings, v string) {
		if port, err := strconv.Atoi(v); err == nil && validPort(port) {
			s.Port = port
		}
	}},
}

// SettingsFromConfig reads the field_bridge section of the project config
// and then any AUTONS_BRIDGE_* environment variables.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{Enabled: true}
	if cfg != nil {
		fb := cfg.Project.FieldBridge
		if fb.Enabled != nil {
			s.Enabled = *fb.Enabled
		}
		s.Host = strings.TrimSpace(fb.Host)
		s.Port = fb.Port
	}
	for _, o := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			o.apply(&s, v)
		}
	}
	return s.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.Host) == "" {
		s.Host = DefaultHost
	}
	if !validPort(s.Port) {
		s.Port = DefaultPort
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	return s
}

// Address returns host:port.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the bridge base URL.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}
