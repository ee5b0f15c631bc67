package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical grid defaults file.
const DefaultConfigPath = "config/botgrid.defaults.json"

// Default values used when a field is absent from the JSON file.
const (
	DefaultAxis          = 27
	DefaultBaudRate      = 115200
	DefaultDataBits      = 8
	DefaultStopBits      = 1
	DefaultParity        = "N"
	DefaultMetricsListen = ""
)

// GridConfig is the root configuration for the botgrid binary. Pointer fields
// distinguish "not set" from zero values; the Get* methods supply defaults.
type GridConfig struct {
	// Grid params
	Axis              *int  `json:"axis,omitempty"`
	MemoryBudgetBytes *int  `json:"memory_budget_bytes,omitempty"` // 0 or unset means unbounded heap
	ClearOnFullClip   *bool `json:"clear_on_full_clip,omitempty"`

	// Console transport
	SerialPort *string `json:"serial_port,omitempty"`
	BaudRate   *int    `json:"baud_rate,omitempty"`
	DataBits   *int    `json:"data_bits,omitempty"`
	StopBits   *int    `json:"stop_bits,omitempty"`
	Parity     *string `json:"parity,omitempty"`

	// Persistence and observability
	DBPath        *string `json:"db_path,omitempty"`
	MetricsListen *string `json:"metrics_listen,omitempty"` // e.g. "localhost:9108"
	Debug         *bool   `json:"debug,omitempty"`
}

func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }

// EmptyGridConfig returns a GridConfig with all fields set to nil.
func EmptyGridConfig() *GridConfig {
	return &GridConfig{}
}

// LoadGridConfig loads a GridConfig from a JSON file. The file must have a
// .json extension and be under 1MB. Omitted fields keep their defaults.
func LoadGridConfig(path string) (*GridConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyGridConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *GridConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadGridConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *GridConfig) Validate() error {
	if c.Axis != nil {
		if *c.Axis < 1 || *c.Axis > 255 {
			return fmt.Errorf("axis must be between 1 and 255, got %d", *c.Axis)
		}
	}

	if c.MemoryBudgetBytes != nil && *c.MemoryBudgetBytes < 0 {
		return fmt.Errorf("memory_budget_bytes must be non-negative, got %d", *c.MemoryBudgetBytes)
	}

	if c.BaudRate != nil && *c.BaudRate < 0 {
		return fmt.Errorf("baud_rate must be non-negative, got %d", *c.BaudRate)
	}

	if c.DataBits != nil && (*c.DataBits < 5 || *c.DataBits > 8) {
		return fmt.Errorf("data_bits must be between 5 and 8, got %d", *c.DataBits)
	}

	if c.StopBits != nil && *c.StopBits != 1 && *c.StopBits != 2 {
		return fmt.Errorf("stop_bits must be 1 or 2, got %d", *c.StopBits)
	}

	if c.Parity != nil {
		switch strings.ToUpper(strings.TrimSpace(*c.Parity)) {
		case "", "N", "E", "O", "NONE", "EVEN", "ODD":
		default:
			return fmt.Errorf("unsupported parity %q", *c.Parity)
		}
	}

	return nil
}

// GetAxis returns the axis value or the default.
func (c *GridConfig) GetAxis() uint8 {
	if c.Axis == nil {
		return DefaultAxis
	}
	return uint8(*c.Axis)
}

// GetMemoryBudgetBytes returns the memory budget; 0 means unbounded.
func (c *GridConfig) GetMemoryBudgetBytes() int {
	if c.MemoryBudgetBytes == nil {
		return 0
	}
	return *c.MemoryBudgetBytes
}

// GetClearOnFullClip returns the clear_on_full_clip value or the default.
func (c *GridConfig) GetClearOnFullClip() bool {
	if c.ClearOnFullClip == nil {
		return false
	}
	return *c.ClearOnFullClip
}

// GetSerialPort returns the serial device path; empty disables the serial console.
func (c *GridConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetBaudRate returns the baud_rate value or the default.
func (c *GridConfig) GetBaudRate() int {
	if c.BaudRate == nil || *c.BaudRate == 0 {
		return DefaultBaudRate
	}
	return *c.BaudRate
}

// GetDataBits returns the data_bits value or the default.
func (c *GridConfig) GetDataBits() int {
	if c.DataBits == nil {
		return DefaultDataBits
	}
	return *c.DataBits
}

// GetStopBits returns the stop_bits value or the default.
func (c *GridConfig) GetStopBits() int {
	if c.StopBits == nil {
		return DefaultStopBits
	}
	return *c.StopBits
}

// GetParity returns the parity value or the default.
func (c *GridConfig) GetParity() string {
	if c.Parity == nil || *c.Parity == "" {
		return DefaultParity
	}
	return *c.Parity
}

// GetDBPath returns the snapshot database path; empty disables persistence.
func (c *GridConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetMetricsListen returns the metrics listen address; empty disables it.
func (c *GridConfig) GetMetricsListen() string {
	if c.MetricsListen == nil {
		return DefaultMetricsListen
	}
	return *c.MetricsListen
}

// GetDebug returns the debug value or the default.
func (c *GridConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}

// WithAxis returns a copy of c with Axis set, used to apply flag overrides.
func (c *GridConfig) WithAxis(axis int) *GridConfig {
	out := *c
	out.Axis = ptrInt(axis)
	return &out
}

// WithSerialPort returns a copy of c with SerialPort set.
func (c *GridConfig) WithSerialPort(path string) *GridConfig {
	out := *c
	out.SerialPort = ptrString(path)
	return &out
}

// WithDBPath returns a copy of c with DBPath set.
func (c *GridConfig) WithDBPath(path string) *GridConfig {
	out := *c
	out.DBPath = ptrString(path)
	return &out
}

// WithMetricsListen returns a copy of c with MetricsListen set.
func (c *GridConfig) WithMetricsListen(addr string) *GridConfig {
	out := *c
	out.MetricsListen = ptrString(addr)
	return &out
}

// WithDebug returns a copy of c with Debug set.
func (c *GridConfig) WithDebug(enabled bool) *GridConfig {
	out := *c
	out.Debug = ptrBool(enabled)
	return &out
}
