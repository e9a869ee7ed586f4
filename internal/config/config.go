// Package config loads the checkout server configuration from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Product is the item on sale.
type Product struct {
	Name  string `toml:"name"`
	Price int64  `toml:"price"`
}

// Tokenizer configures the simulated token provider.
type Tokenizer struct {
	Delay Duration `toml:"delay"`
	Fail  bool     `toml:"fail"`
}

// Charge configures the simulated charge service.
type Charge struct {
	Delay   Duration `toml:"delay"`
	Decline bool     `toml:"decline"`
}

// Config is the server configuration.
type Config struct {
	Addr            string    `toml:"addr"`
	RequestTimeout  Duration  `toml:"request_timeout"`
	ShutdownTimeout Duration  `toml:"shutdown_timeout"`
	LogLevel        string    `toml:"log_level"`
	Product         Product   `toml:"product"`
	Tokenizer       Tokenizer `toml:"tokenizer"`
	Charge          Charge    `toml:"charge"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:            ":8080",
		RequestTimeout:  Duration{10 * time.Second},
		ShutdownTimeout: Duration{5 * time.Second},
		LogLevel:        "info",
		Product:         Product{Name: "Test product", Price: 100},
		Tokenizer:       Tokenizer{Delay: Duration{time.Second}},
		Charge:          Charge{Delay: Duration{time.Second}},
	}
}

// Load reads path over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes TOML data into cfg, keeping fields the data does not set.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return err
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr cannot be empty")
	case c.RequestTimeout.Duration <= 0:
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	case c.ShutdownTimeout.Duration <= 0:
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	case c.Product.Name == "":
		return errors.New("product name cannot be empty")
	case c.Tokenizer.Delay.Duration < 0:
		return fmt.Errorf("tokenizer delay cannot be negative, got %s", c.Tokenizer.Delay)
	case c.Charge.Delay.Duration < 0:
		return fmt.Errorf("charge delay cannot be negative, got %s", c.Charge.Delay)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
