package rpcgate

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "empty login invalid",
			mutate: func(c *Config) {
				c.Methods.Login = ""
			},
			wantValid: false,
		},
		{
			name: "padded keep-alive invalid",
			mutate: func(c *Config) {
				c.Methods.KeepAlive = " opKeepSessionAlive"
			},
			wantValid: false,
		},
		{
			name: "login equals logout invalid",
			mutate: func(c *Config) {
				c.Methods.Logout = c.Methods.Login
			},
			wantValid: false,
		},
		{
			name: "cookie name with separator invalid",
			mutate: func(c *Config) {
				c.Session.CookieName = "session;id"
			},
			wantValid: false,
		},
		{
			name: "zero ttl invalid",
			mutate: func(c *Config) {
				c.Session.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "negative max entries invalid",
			mutate: func(c *Config) {
				c.Session.MaxEntries = -1
			},
			wantValid: false,
		},
		{
			name: "samesite none without secure invalid",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
			},
			wantValid: false,
		},
		{
			name: "samesite none with secure valid",
			mutate: func(c *Config) {
				c.Cookie.SameSite = http.SameSiteNoneMode
				c.Cookie.Secure = true
			},
			wantValid: true,
		},
		{
			name: "blank bypass method invalid",
			mutate: func(c *Config) {
				c.Bypass.Methods = append(c.Bypass.Methods, "")
			},
			wantValid: false,
		},
		{
			name: "developer ip and prefix valid",
			mutate: func(c *Config) {
				c.Developer.AllowedIPs = []string{"10.0.0.1", "192.168.0.0/16", "::1"}
			},
			wantValid: true,
		},
		{
			name: "developer ip garbage invalid",
			mutate: func(c *Config) {
				c.Developer.AllowedIPs = []string{"not-an-ip"}
			},
			wantValid: false,
		},
		{
			name: "negative call timeout invalid",
			mutate: func(c *Config) {
				c.Dispatch.CallTimeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "zero call timeout valid",
			mutate: func(c *Config) {
				c.Dispatch.CallTimeout = 0
			},
			wantValid: true,
		},
		{
			name: "zero request bytes invalid",
			mutate: func(c *Config) {
				c.Dispatch.MaxRequestBytes = 0
			},
			wantValid: false,
		},
		{
			name: "tracing without tracer name invalid",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.TracerName = " "
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigValidateReportsFirstBadMethodName(t *testing.T) {
	for i := 0; i < 20; i++ {
		cfg := defaultConfig()
		cfg.Methods.Login = ""
		cfg.Methods.KeepAlive = " padded"
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !strings.Contains(err.Error(), "Methods Login") {
			t.Fatalf("expected Login to be reported first, got %v", err)
		}
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Methods.Login != "authorization.login" {
		t.Fatalf("unexpected login method %q", cfg.Methods.Login)
	}
	if cfg.Methods.Logout != "authorization.logout" {
		t.Fatalf("unexpected logout method %q", cfg.Methods.Logout)
	}
	if cfg.Methods.KeepAlive != "opKeepSessionAlive" {
		t.Fatalf("unexpected keep-alive method %q", cfg.Methods.KeepAlive)
	}
	if cfg.Session.CookieName != "ASP.NET_sessionID" {
		t.Fatalf("unexpected cookie name %q", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != 60*time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.Session.TTL)
	}
	if cfg.Developer.Enabled {
		t.Fatal("developer mode must default to off")
	}
	if len(cfg.Bypass.Methods) != len(DefaultBypassMethods) {
		t.Fatalf("expected %d bypass methods, got %d", len(DefaultBypassMethods), len(cfg.Bypass.Methods))
	}
}

func TestCloneConfigCopiesSlices(t *testing.T) {
	cfg := defaultConfig()
	cfg.Developer.AllowedIPs = []string{"10.0.0.1"}

	clone := cloneConfig(cfg)
	clone.Bypass.Methods[0] = "mutated"
	clone.Developer.AllowedIPs[0] = "10.0.0.2"

	if cfg.Bypass.Methods[0] == "mutated" {
		t.Fatal("bypass methods shared between clones")
	}
	if cfg.Developer.AllowedIPs[0] != "10.0.0.1" {
		t.Fatal("developer ips shared between clones")
	}
	if DefaultBypassMethods[0] != "system.listMethods" {
		t.Fatal("default bypass list mutated")
	}
}

func TestLoadEnv(t *testing.T) {
	env := map[string]string{
		EnvDeveloperMode: "true",
		EnvDeveloperIPs:  " 10.0.0.1, ,192.168.1.0/24 ",
		EnvSessionTTL:    "15",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := defaultConfig()
	if err := cfg.loadEnv(lookup); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if !cfg.Developer.Enabled {
		t.Fatal("expected developer mode enabled")
	}
	if len(cfg.Developer.AllowedIPs) != 2 || cfg.Developer.AllowedIPs[1] != "192.168.1.0/24" {
		t.Fatalf("unexpected developer ips %v", cfg.Developer.AllowedIPs)
	}
	if cfg.Session.TTL != 15*time.Minute {
		t.Fatalf("unexpected ttl %v", cfg.Session.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEnvUnsetKeepsValues(t *testing.T) {
	cfg := defaultConfig()
	cfg.Developer.Enabled = true
	if err := cfg.loadEnv(func(string) (string, bool) { return "", false }); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if !cfg.Developer.Enabled {
		t.Fatal("unset variable must not reset developer mode")
	}
}

func TestLoadEnvRejectsGarbage(t *testing.T) {
	for _, tc := range []map[string]string{
		{EnvDeveloperMode: "maybe"},
		{EnvSessionTTL: "-5"},
		{EnvSessionTTL: "soon"},
	} {
		cfg := defaultConfig()
		err := cfg.loadEnv(func(k string) (string, bool) {
			v, ok := tc[k]
			return v, ok
		})
		if err == nil {
			t.Fatalf("expected error for %v", tc)
		}
	}
}

func TestLoadEnvFromProcess(t *testing.T) {
	t.Setenv(EnvDeveloperMode, "0")
	t.Setenv(EnvDeveloperIPs, "")

	cfg := defaultConfig()
	cfg.Developer.Enabled = true
	if err := cfg.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if cfg.Developer.Enabled {
		t.Fatal("expected developer mode disabled")
	}
	if len(cfg.Developer.AllowedIPs) != 0 {
		t.Fatalf("expected no developer ips, got %v", cfg.Developer.AllowedIPs)
	}
}
