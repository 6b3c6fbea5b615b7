// Package config provides configuration types and loading for facevault.
package config

import (
	"os"
	"path/filepath"
)

// Config is the root configuration struct.
// Top-level groups: Server, Store, Index, Embedder, Events.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Store    StoreConfig    `json:"store"`
	Index    IndexConfig    `json:"index"`
	Embedder EmbedderConfig `json:"embedder"`
	Events   EventsConfig   `json:"events"`
}

// ServerConfig groups HTTP API settings.
type ServerConfig struct {
	Host string `json:"host" envconfig:"HOST"`
	Port int    `json:"port" envconfig:"PORT"`
}

// StoreConfig points at the SQLite metadata database.
type StoreConfig struct {
	Path string `json:"path" envconfig:"PATH"`
}

// IndexConfig describes the external vector index service. IndexType,
// Method and Dims are fixed for the process lifetime; changing Dims over
// existing data is caught by rehydration, which re-validates every stored
// vector instead of silently overriding.
type IndexConfig struct {
	URL       string `json:"url" envconfig:"URL"`
	IndexType int    `json:"indexType" envconfig:"INDEX_TYPE"`
	Method    int    `json:"method" envconfig:"METHOD"`
	Dims      int    `json:"dims" envconfig:"DIMS"`
}

// EmbedderConfig points at the face-embedding inference service. An empty
// URL disables the image endpoints; raw-embedding endpoints keep working.
type EmbedderConfig struct {
	URL string `json:"url" envconfig:"URL"`
}

// EventsConfig configures the optional Kafka event publisher.
type EventsConfig struct {
	Enabled bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Store:  StoreConfig{Path: filepath.Join(home, ConfigDir, "facevault.db")},
		Index: IndexConfig{
			URL:       "http://localhost:9000",
			IndexType: 0,
			Method:    1,
			Dims:      512,
		},
		Events: EventsConfig{
			Brokers: "localhost:9092",
			Topic:   "facevault.events",
		},
	}
}
