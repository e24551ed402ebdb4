package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// It is composed of smaller structs representing the different concerns of the
// system: the HTTP server, the PostgreSQL statistics store, the flat-file
// order-book source, and the regulatory report output.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	DATA_DIR=./data/input
//	OUTPUT_DIR=./xml_output
//	SCHEMA_DIR=./schemas
//	HASH_SECRET=a09bf31a8152d8b1accc73c646253dc5
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Source   SourceConfig
	Report   ReportConfig
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string
}

// PostgresConfig defines connection details for the statistics store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string // computed DSN used by database/sql
}

// SourceConfig locates the daily order-book extract files.
type SourceConfig struct {
	DataDir string
}

// ReportConfig holds everything the regulatory codec needs at construction:
// where the assembled master schema lives, where archives are written, the
// secret used by the anonymization hash, the version token embedded in output
// filenames, and the per-document row cap.
type ReportConfig struct {
	SchemaDir  string
	OutputDir  string
	HashSecret string
	Version    string
	ChunkCap   int
}

// AppConfig is the globally accessible configuration instance, populated once
// via LoadConfig() and read everywhere else.
var AppConfig Config

// LoadConfig initializes the global AppConfig.
//
// Precedence (lowest to highest):
//  1. Defaults set in this function.
//  2. Values from a .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "orkpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("DATA_DIR", "./data/input")
	viper.SetDefault("OUTPUT_DIR", "./xml_output")
	viper.SetDefault("SCHEMA_DIR", "./schemas")
	viper.SetDefault("REPORT_VERSION", "001")
	viper.SetDefault("REPORT_CHUNK_CAP", 250000)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Source: SourceConfig{
			DataDir: viper.GetString("DATA_DIR"),
		},
		Report: ReportConfig{
			SchemaDir:  viper.GetString("SCHEMA_DIR"),
			OutputDir:  viper.GetString("OUTPUT_DIR"),
			HashSecret: viper.GetString("HASH_SECRET"),
			Version:    viper.GetString("REPORT_VERSION"),
			ChunkCap:   viper.GetInt("REPORT_CHUNK_CAP"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig ensures required variables are present and terminates the
// application if they are missing.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Source.DataDir == "" {
		missing = append(missing, "DATA_DIR")
	}
	if AppConfig.Report.OutputDir == "" {
		missing = append(missing, "OUTPUT_DIR")
	}
	if AppConfig.Report.ChunkCap < 2 {
		missing = append(missing, "REPORT_CHUNK_CAP")
	}

	if len(missing) > 0 {
		log.Fatalf("missing or invalid required configuration: %v\n", missing)
	}
}
