// Package config loads the relay's settings from an optional file and
// DXRELAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// DXRELAY_TELNET_HOST for telnet.host.
const EnvPrefix = "DXRELAY"

type Telnet struct {
	Host     string `mapstructure:"host"`
	Username string `mapstructure:"username"`
}

type Matrix struct {
	Homeserver  string `mapstructure:"homeserver"`
	AccessToken string `mapstructure:"access_token"`
	UserID      string `mapstructure:"user_id"`
	DeviceID    string `mapstructure:"device_id"`
	RoomID      string `mapstructure:"room_id"`
}

// Enabled reports whether spots should go to a Matrix room.
func (m Matrix) Enabled() bool { return m.Homeserver != "" }

type API struct {
	// Listen is the API server address. Empty disables the API.
	Listen string `mapstructure:"listen"`
}

type DB struct {
	Path string `mapstructure:"path"`
}

type DNS struct {
	// Nameserver, when set, is queried directly instead of the system
	// resolver.
	Nameserver string `mapstructure:"nameserver"`
}

type Output struct {
	// Format is "text" or "json" for the console sink.
	Format string `mapstructure:"format"`
}

type Config struct {
	Telnet Telnet `mapstructure:"telnet"`
	Matrix Matrix `mapstructure:"matrix"`
	API    API    `mapstructure:"api"`
	DB     DB     `mapstructure:"db"`
	DNS    DNS    `mapstructure:"dns"`
	Output Output `mapstructure:"output"`
}

func Default() *Config {
	return &Config{
		Telnet: Telnet{Host: "www.cqgma.org:7300"},
		API:    API{Listen: "127.0.0.1:8081"},
		DB:     DB{Path: "dxrelay.db"},
		Output: Output{Format: "text"},
	}
}

// Load reads path (TOML, YAML or JSON by extension) over the defaults and
// applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Every key needs a default for AutomaticEnv to reach it during Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("telnet.host", d.Telnet.Host)
	v.SetDefault("telnet.username", d.Telnet.Username)
	v.SetDefault("matrix.homeserver", d.Matrix.Homeserver)
	v.SetDefault("matrix.access_token", d.Matrix.AccessToken)
	v.SetDefault("matrix.user_id", d.Matrix.UserID)
	v.SetDefault("matrix.device_id", d.Matrix.DeviceID)
	v.SetDefault("matrix.room_id", d.Matrix.RoomID)
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("dns.nameserver", d.DNS.Nameserver)
	v.SetDefault("output.format", d.Output.Format)
}

// Validate checks the settings needed to start the relay.
func (c *Config) Validate() error {
	var errs []error

	if c.Telnet.Host == "" {
		errs = append(errs, errors.New("telnet.host is required"))
	} else if _, port, err := net.SplitHostPort(c.Telnet.Host); err != nil || port == "" {
		errs = append(errs, fmt.Errorf("telnet.host %q must be host:port", c.Telnet.Host))
	}
	if c.Telnet.Username == "" {
		errs = append(errs, errors.New("telnet.username is required"))
	}

	if c.Matrix.Enabled() {
		if c.Matrix.AccessToken == "" {
			errs = append(errs, errors.New("matrix.access_token is required with matrix.homeserver"))
		}
		if c.Matrix.RoomID == "" {
			errs = append(errs, errors.New("matrix.room_id is required with matrix.homeserver"))
		}
	}

	switch c.Output.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output.format %q must be text or json", c.Output.Format))
	}

	return errors.Join(errs...)
}

// String renders the config for logs with the access token redacted.
func (c *Config) String() string {
	token := ""
	if c.Matrix.AccessToken != "" {
		token = "REDACTED"
	}
	return fmt.Sprintf("telnet=%s user=%s matrix=%s room=%s token=%s api=%s db=%s nameserver=%s output=%s",
		c.Telnet.Host, c.Telnet.Username, c.Matrix.Homeserver, c.Matrix.RoomID, token,
		c.API.Listen, c.DB.Path, c.DNS.Nameserver, c.Output.Format)
}
