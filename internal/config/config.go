// internal/config/config.go
package config

type Config struct {
	Board          BoardConfig          `yaml:"board"`
	FlightComputer FlightComputerConfig `yaml:"flight_computer"`
	Network        NetworkConfig        `yaml:"network"`
	Heartbeat      HeartbeatConfig      `yaml:"heartbeat"`
	Handshake      HandshakeConfig      `yaml:"handshake"`
	Loop           LoopConfig           `yaml:"loop"`
	SPI            []SPIConfig          `yaml:"spi"`
	Converters     []ConverterConfig    `yaml:"converters"`
	Rail           RailConfig           `yaml:"rail"`
	Logging        LoggingConfig        `yaml:"logging"`
	Bench          BenchConfig          `yaml:"bench"`

	// Pinout overrides the embedded table named by Board.Revision.
	Pinout *Pinout `yaml:"pinout"`
}

// ---- BOARD ----

type BoardConfig struct {
	ID       string `yaml:"id"` // defaults to the hostname
	Revision string `yaml:"revision"`
}

// ---- NETWORK ----

type FlightComputerConfig struct {
	Host     string `yaml:"host"`
	DataPort int    `yaml:"data_port"`
}

type NetworkConfig struct {
	CommandPort int `yaml:"command_port"`
	DataPort    int `yaml:"data_port"` // 0 = ephemeral
}

type HeartbeatConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
	PollMs    int `yaml:"poll_ms"`
}

type HandshakeConfig struct {
	Attempts     int `yaml:"attempts"`
	TimeoutMs    int `yaml:"timeout_ms"`
	RetryDelayMs int `yaml:"retry_delay_ms"`
}

type LoopConfig struct {
	DelayMs int `yaml:"delay_ms"`
}

// ---- ACQUISITION ----

type SPIConfig struct {
	Name        string `yaml:"name"`
	Device      string `yaml:"device"` // periph port name, e.g. SPI0.0
	ClockHz     int64  `yaml:"clock_hz"`
	Mode        *uint8 `yaml:"mode"` // defaults to 1
	LSBFirst    bool   `yaml:"lsb_first"`
	BitsPerWord int    `yaml:"bits_per_word"`
}

type ConverterConfig struct {
	Kind string `yaml:"kind"`
	Bus  string `yaml:"bus"` // SPIConfig.Name; defaults to the first bus
}

// ---- RAIL ----

const (
	RailSysfs  = "sysfs"
	RailModbus = "modbus"
	RailNone   = "none"
)

type RailConfig struct {
	Source   string              `yaml:"source"`
	Channels []RailChannelConfig `yaml:"channels"`
	Modbus   RailModbusConfig    `yaml:"modbus"`
}

type RailChannelConfig struct {
	Path  string  `yaml:"path"` // sysfs only
	ID    uint32  `yaml:"id"`
	Type  string  `yaml:"type"` // rail_voltage | rail_current
	Scale float64 `yaml:"scale"`
}

type RailModbusConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Address   uint16 `yaml:"address"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ---- BENCH ----

type BenchConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}
