package main

import (
	"log"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

type Config struct {
	HTTPAddr     string        `koanf:"http_address"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	DBFile       string        `koanf:"dbfile"`
	UploadDir    string        `koanf:"upload_dir"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`

	PageLogoURL string `koanf:"page_logo_url"`
	PageTitle   string `koanf:"page_title"`
	PageIntro   string `koanf:"page_intro"`

	Auth CfgAuth `koanf:"auth"`
}

type CfgAuth struct {
	// HeaderName is the identity header injected by the reverse proxy.
	HeaderName string `koanf:"header_name"`
	// AdminUsers is the allow-list checked against the normalized identity.
	AdminUsers []string `koanf:"admin_users"`
	// DevMode treats a request without an identity header as an admin.
	DevMode bool `koanf:"dev_mode"`
}

func initConfig(configFile string) Config {
	var (
		config Config
		k      = koanf.New(".")
	)

	if err := k.Load(file.Provider(configFile), toml.Parser()); err != nil {
		log.Fatalf("error loading file: %v", err)
	}

	// Environment overrides. The proxy deployment sets the admin list and
	// header name this way rather than editing config.toml on the host.
	if err := k.Load(env.Provider("LAUNCHPAD_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "LAUNCHPAD_"))
		switch key {
		case "admin_users":
			return "auth.admin_users"
		case "admin_header_name":
			return "auth.header_name"
		case "dev_mode":
			return "auth.dev_mode"
		}
		return key
	}), nil); err != nil {
		log.Fatalf("error loading env: %v", err)
	}

	if err := k.Unmarshal("", &config); err != nil {
		log.Fatalf("error while unmarshalling config: %v", err)
	}

	if config.Auth.HeaderName == "" {
		config.Auth.HeaderName = "x-windows-user"
	}
	if config.UploadDir == "" {
		config.UploadDir = "data/icons"
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}

	return config
}
