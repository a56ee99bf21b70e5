package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chaz8081/hog-remote/internal/keymap"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string         `yaml:"log_level" toml:"log_level"`
	Device   DeviceConfig   `yaml:"device" toml:"device"`
	Board    BoardConfig    `yaml:"board" toml:"board"`
	Buttons  []ButtonConfig `yaml:"buttons" toml:"buttons"`
	Unpair   UnpairConfig   `yaml:"unpair" toml:"unpair"`
	Power    PowerConfig    `yaml:"power" toml:"power"`
	Output   string         `yaml:"output" toml:"output"` // "ble" or "loopback"
	Bonds    BondsConfig    `yaml:"bonds" toml:"bonds"`
	BootLog  string         `yaml:"boot_log" toml:"boot_log"` // empty disables the journal
}

// DeviceConfig holds the advertised identity.
type DeviceConfig struct {
	Name string `yaml:"name" toml:"name"`
}

// BoardConfig selects the button hardware.
type BoardConfig struct {
	Driver         string        `yaml:"driver" toml:"driver"` // "evdev", "gpio" or "hook"
	Device         string        `yaml:"device" toml:"device"` // evdev input node
	PollInterval   time.Duration `yaml:"poll_interval" toml:"poll_interval"`
	SuspendCommand []string      `yaml:"suspend_command" toml:"suspend_command"`
}

// ButtonConfig binds one physical button to a key.
type ButtonConfig struct {
	Name string `yaml:"name" toml:"name"`
	Pin  string `yaml:"pin" toml:"pin"`
	Key  string `yaml:"key" toml:"key"`
}

// UnpairConfig names the two buttons of the unpair gesture.
type UnpairConfig struct {
	Reset    string        `yaml:"reset" toml:"reset"`
	Extra    string        `yaml:"extra" toml:"extra"`
	Hold     time.Duration `yaml:"hold" toml:"hold"`
	EdgeOnly bool          `yaml:"edge_only" toml:"edge_only"`
}

// PowerConfig holds the idle/sleep timings.
type PowerConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout" toml:"idle_timeout"`
	Tick        time.Duration `yaml:"tick" toml:"tick"`
}

// BondsConfig selects where bonds are forgotten.
type BondsConfig struct {
	Driver  string `yaml:"driver" toml:"driver"` // "bluez" or "none"
	Adapter string `yaml:"adapter" toml:"adapter"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hog-remote")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns the stock remote layout: nine gpio-keys
// buttons, unpair on pause+extra.
func Default() *Config {
	home, _ := os.UserHomeDir()
	bootLog := filepath.Join(home, ".local", "share", "hog-remote", "bootlog.img")

	return &Config{
		LogLevel: "info",
		Device: DeviceConfig{
			Name: "HOG Remote",
		},
		Board: BoardConfig{
			Driver:         "evdev",
			Device:         "/dev/input/by-path/platform-gpio-keys-event",
			PollInterval:   5 * time.Millisecond,
			SuspendCommand: []string{"systemctl", "suspend"},
		},
		Buttons: []ButtonConfig{
			{Name: "down", Pin: "108", Key: "down"},
			{Name: "up", Pin: "103", Key: "up"},
			{Name: "left", Pin: "105", Key: "left"},
			{Name: "right", Pin: "106", Key: "right"},
			{Name: "enter", Pin: "28", Key: "enter"},
			{Name: "home", Pin: "102", Key: "f1"},
			{Name: "back", Pin: "158", Key: "f2"},
			{Name: "pause", Pin: "119", Key: "f4"},
			{Name: "extra", Pin: "148", Key: "f5"},
		},
		Unpair: UnpairConfig{
			Reset: "pause",
			Extra: "extra",
			Hold:  5 * time.Second,
		},
		Power: PowerConfig{
			IdleTimeout: 300 * time.Second,
			Tick:        250 * time.Millisecond,
		},
		Output: "ble",
		Bonds: BondsConfig{
			Driver:  "bluez",
			Adapter: "hci0",
		},
		BootLog: bootLog,
	}
}

// Load reads a YAML config file, or TOML when the name ends in ".toml".
// Missing fields are filled with defaults; a buttons list replaces the
// default map as a whole. Tilde (~) in boot_log is expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	cfg.Buttons = nil
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.Buttons == nil {
		cfg.Buttons = Default().Buttons
	}

	cfg.BootLog = expandTilde(cfg.BootLog)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Board.Driver {
	case "evdev":
		if c.Board.Device == "" {
			return fmt.Errorf("board.device must not be empty for the evdev driver")
		}
	case "gpio", "hook":
	default:
		return fmt.Errorf("board.driver must be evdev, gpio, or hook, got %q", c.Board.Driver)
	}

	if len(c.Buttons) == 0 {
		return fmt.Errorf("buttons must not be empty")
	}
	names := make(map[string]bool, len(c.Buttons))
	for i, b := range c.Buttons {
		if b.Name == "" {
			return fmt.Errorf("buttons[%d].name must not be empty", i)
		}
		if names[b.Name] {
			return fmt.Errorf("buttons[%d].name %q is not unique", i, b.Name)
		}
		names[b.Name] = true
		if b.Pin == "" {
			return fmt.Errorf("buttons[%d].pin must not be empty", i)
		}
		if _, err := keymap.ParseKey(b.Key); err != nil {
			return fmt.Errorf("buttons[%d].key: %w", i, err)
		}
	}

	if !names[c.Unpair.Reset] {
		return fmt.Errorf("unpair.reset %q is not a configured button", c.Unpair.Reset)
	}
	if !names[c.Unpair.Extra] {
		return fmt.Errorf("unpair.extra %q is not a configured button", c.Unpair.Extra)
	}
	if c.Unpair.Reset == c.Unpair.Extra {
		return fmt.Errorf("unpair.reset and unpair.extra must be different buttons")
	}
	if c.Unpair.Hold <= 0 {
		return fmt.Errorf("unpair.hold must be > 0")
	}

	if c.Power.IdleTimeout <= 0 {
		return fmt.Errorf("power.idle_timeout must be > 0")
	}
	if c.Power.Tick <= 0 {
		return fmt.Errorf("power.tick must be > 0")
	}
	if c.Power.Tick > c.Power.IdleTimeout {
		return fmt.Errorf("power.tick must not exceed power.idle_timeout")
	}

	switch c.Output {
	case "ble", "loopback":
	default:
		return fmt.Errorf("output must be \"ble\" or \"loopback\", got %q", c.Output)
	}

	switch c.Bonds.Driver {
	case "bluez", "none":
	default:
		return fmt.Errorf("bonds.driver must be \"bluez\" or \"none\", got %q", c.Bonds.Driver)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// Bindings converts the buttons section for keymap.New.
func (c *Config) Bindings() []keymap.Binding {
	out := make([]keymap.Binding, len(c.Buttons))
	for i, b := range c.Buttons {
		out[i] = keymap.Binding{Name: b.Name, Pin: b.Pin, Key: b.Key}
	}
	return out
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# hog-remote configuration
#
# board.driver: evdev (gpio-keys input device), gpio (Raspberry Pi BCM pins)
#               or hook (host keyboard, for trying the remote on a desktop).
# buttons are listed in report order; pin is driver specific:
#   evdev: Linux key code, gpio: BCM number, hook: host key name.
# output: ble (HID over GATT) or loopback (replay keys on this host).

`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there. It returns the written path, or "" if a file was already
// present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
