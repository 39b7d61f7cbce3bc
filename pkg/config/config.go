package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Routes       RoutesConfig       `yaml:"routes"`
	Map          MapConfig          `yaml:"map"`
	Augmentation AugmentationConfig `yaml:"augmentation"`
	Transit      TransitConfig      `yaml:"transit"`
	Cache        CacheConfig        `yaml:"cache"`
	WarmCache    WarmCacheConfig    `yaml:"warmcache"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RoutesConfig struct {
	Files []string `yaml:"files"`
}

type MapConfig struct {
	DefaultOrigin  string `yaml:"default_origin"`
	HorizonSeconds int64  `yaml:"horizon_seconds"`
	RingSeconds    int64  `yaml:"ring_seconds"`
}

type AugmentationConfig struct {
	RadiusKM     float64 `yaml:"radius_km"`
	AdHocSeconds int64   `yaml:"adhoc_seconds"`
	Departure    string  `yaml:"departure"`
}

type TransitConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig Path kosong = cache in-memory, hilang waktu process mati.
type CacheConfig struct {
	Path string `yaml:"path"`
}

type WarmCacheConfig struct {
	Workers int `yaml:"workers"`
}

func DefaultConfig() *Config {
	c := &Config{Cache: CacheConfig{Path: "timemapDB"}}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":5000"
	}
	if c.Map.DefaultOrigin == "" {
		c.Map.DefaultOrigin = "Westport"
	}
	if c.Map.HorizonSeconds <= 0 {
		c.Map.HorizonSeconds = 140 * 60
	}
	if c.Map.RingSeconds <= 0 {
		c.Map.RingSeconds = 2 * 60 * 60
	}
	if c.Augmentation.RadiusKM <= 0 {
		c.Augmentation.RadiusKM = 1000
	}
	if c.Augmentation.AdHocSeconds <= 0 {
		c.Augmentation.AdHocSeconds = 30 * 60
	}
	if c.Augmentation.Departure == "" {
		c.Augmentation.Departure = "2022-09-08T18:00:00+0200"
	}
	if c.Transit.BaseURL == "" {
		c.Transit.BaseURL = "https://v6.db.transport.rest"
	}
	if c.Transit.Timeout <= 0 {
		c.Transit.Timeout = 15 * time.Second
	}
	if c.WarmCache.Workers <= 0 {
		c.WarmCache.Workers = 4
	}
}

// Load baca config yaml dari path. File yang tidak ada = pakai default semua.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	// cache.path default hanya kalau key nya tidak ada, "" eksplisit = in-memory
	cfg := Config{Cache: CacheConfig{Path: "timemapDB"}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
