// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Printer  PrinterConfig  `mapstructure:"printer"`
	Font     FontConfig     `mapstructure:"font"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	App      AppConfig      `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         string        `mapstructure:"port" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// PrinterConfig represents the default target printer. Descriptors can
// override the target per job; jobs without connection settings land
// here.
type PrinterConfig struct {
	Host       string           `mapstructure:"host"`
	Port       int              `mapstructure:"port"`
	Connection string           `mapstructure:"connection"` // tcp, serial, usb
	Profile    string           `mapstructure:"profile"`
	TCP        TCPPortConfig    `mapstructure:"tcp"`
	Serial     SerialPortConfig `mapstructure:"serial"`
	USB        USBPortConfig    `mapstructure:"usb"`
}

// TCPPortConfig represents TCP transport configuration
type TCPPortConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	KeepAlive      bool          `mapstructure:"keep_alive"`
}

// SerialPortConfig represents serial transport configuration
type SerialPortConfig struct {
	Port     string        `mapstructure:"port"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	StopBits int           `mapstructure:"stop_bits"`
	Parity   string        `mapstructure:"parity"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// USBPortConfig represents USB transport configuration
type USBPortConfig struct {
	VendorID  string        `mapstructure:"vendor_id"`
	ProductID string        `mapstructure:"product_id"`
	Endpoint  int           `mapstructure:"endpoint"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// FontConfig represents font engine configuration
type FontConfig struct {
	Dir     string `mapstructure:"dir"`
	Default string `mapstructure:"default"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../../internal/config")

	// Environment variable support
	viper.SetEnvPrefix("LABEL_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file; defaults plus environment are enough to run
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8086")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Printer defaults
	viper.SetDefault("printer.host", "192.168.0.251")
	viper.SetDefault("printer.port", 1024)
	viper.SetDefault("printer.connection", "tcp")
	viper.SetDefault("printer.profile", "SG412R_Status5")

	viper.SetDefault("printer.tcp.connect_timeout", "10s")
	viper.SetDefault("printer.tcp.read_timeout", "0s")
	viper.SetDefault("printer.tcp.write_timeout", "30s")
	viper.SetDefault("printer.tcp.keep_alive", true)

	viper.SetDefault("printer.serial.baud_rate", 9600)
	viper.SetDefault("printer.serial.data_bits", 8)
	viper.SetDefault("printer.serial.stop_bits", 1)
	viper.SetDefault("printer.serial.parity", "none")
	viper.SetDefault("printer.serial.timeout", "5s")

	viper.SetDefault("printer.usb.endpoint", 1)
	viper.SetDefault("printer.usb.timeout", "5s")

	// Font defaults
	viper.SetDefault("font.dir", "./fonts")
	viper.SetDefault("font.default", "goregular")

	// Security defaults
	viper.SetDefault("security.allowed_origins", []string{"*"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// App defaults
	viper.SetDefault("app.name", "label-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	// Basic validation
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	switch config.Printer.Connection {
	case "tcp", "serial", "usb":
	default:
		return fmt.Errorf("printer.connection must be one of: tcp, serial, usb")
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// ConnectionConfig builds the transport factory configuration for the
// default printer.
func (c *Config) ConnectionConfig() map[string]interface{} {
	switch c.Printer.Connection {
	case "serial":
		return map[string]interface{}{
			"port":      c.Printer.Serial.Port,
			"baud_rate": c.Printer.Serial.BaudRate,
			"data_bits": c.Printer.Serial.DataBits,
			"stop_bits": c.Printer.Serial.StopBits,
			"parity":    c.Printer.Serial.Parity,
			"timeout":   c.Printer.Serial.Timeout.String(),
		}
	case "usb":
		return map[string]interface{}{
			"vendor_id":  c.Printer.USB.VendorID,
			"product_id": c.Printer.USB.ProductID,
			"endpoint":   c.Printer.USB.Endpoint,
			"timeout":    c.Printer.USB.Timeout.String(),
		}
	default:
		return map[string]interface{}{
			"host":            c.Printer.Host,
			"port":            c.Printer.Port,
			"keep_alive":      c.Printer.TCP.KeepAlive,
			"connect_timeout": c.Printer.TCP.ConnectTimeout.String(),
			"read_timeout":    c.Printer.TCP.ReadTimeout.String(),
			"write_timeout":   c.Printer.TCP.WriteTimeout.String(),
		}
	}
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
