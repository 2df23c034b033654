package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

// Config points the suite at a running relay. Empty addresses skip the
// scenarios so the suite is harmless in a plain go test run.
type Config struct {
	RelayAddr string `envconfig:"E2E_RELAY_ADDR"`
	HttpAddr  string `envconfig:"E2E_HTTP_ADDR"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
