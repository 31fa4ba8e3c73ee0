package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("Load(\"\") = %+v, want %+v", cfg, want)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "dxrelay.toml", `
[telnet]
host = "cluster.example.org:7373"
username = "OH2XX"

[matrix]
homeserver = "https://matrix.example.org"
access_token = "syt_secret"
user_id = "@bot:example.org"
device_id = "DEVICE"
room_id = "!spots:example.org"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telnet.Host != "cluster.example.org:7373" || cfg.Telnet.Username != "OH2XX" {
		t.Errorf("telnet = %+v", cfg.Telnet)
	}
	if cfg.Matrix.AccessToken != "syt_secret" || cfg.Matrix.RoomID != "!spots:example.org" || cfg.Matrix.DeviceID != "DEVICE" {
		t.Errorf("matrix = %+v", cfg.Matrix)
	}
	if cfg.DB.Path != "dxrelay.db" {
		t.Errorf("db.path = %q, want default", cfg.DB.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "dxrelay.yaml", "telnet:\n  username: OH2XX\noutput:\n  format: json\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telnet.Username != "OH2XX" || cfg.Output.Format != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "dxrelay.toml", "[telnet]\nusername = \"FILE\"\n")
	t.Setenv("DXRELAY_TELNET_USERNAME", "ENV")
	t.Setenv("DXRELAY_DNS_NAMESERVER", "9.9.9.9")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telnet.Username != "ENV" {
		t.Errorf("username = %q, want ENV", cfg.Telnet.Username)
	}
	if cfg.DNS.Nameserver != "9.9.9.9" {
		t.Errorf("nameserver = %q, want 9.9.9.9", cfg.DNS.Nameserver)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Telnet.Username = "OH2XX"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no host", func(c *Config) { c.Telnet.Host = "" }, "telnet.host is required"},
		{"no port", func(c *Config) { c.Telnet.Host = "cluster.example.org" }, "must be host:port"},
		{"no username", func(c *Config) { c.Telnet.Username = "" }, "telnet.username"},
		{"matrix without token", func(c *Config) {
			c.Matrix.Homeserver = "https://matrix.example.org"
			c.Matrix.RoomID = "!r:example.org"
		}, "access_token"},
		{"matrix without room", func(c *Config) {
			c.Matrix.Homeserver = "https://matrix.example.org"
			c.Matrix.AccessToken = "t"
		}, "room_id"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStringRedactsToken(t *testing.T) {
	c := Default()
	c.Matrix.AccessToken = "syt_very_secret"
	s := c.String()
	if strings.Contains(s, "syt_very_secret") {
		t.Errorf("String() leaks token: %s", s)
	}
	if !strings.Contains(s, "REDACTED") {
		t.Errorf("String() = %s, want REDACTED marker", s)
	}
}
