// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"backend/internal/types"
)

// FanProfile is one row of the static fan-speed table: priority for
// preemption/rotation, the temperature rate in degrees per simulated minute,
// and the tariff rate in currency units per simulated minute.
type FanProfile struct {
	Priority      int     `yaml:"priority"`
	RatePerMin    float64 `yaml:"rate_per_min"`
	FeeRatePerMin float64 `yaml:"fee_rate_per_min"`
}

// ModeDefaults holds the per-mode target temperature and the initial
// (unserved) temperature every room starts at when that mode is selected.
type ModeDefaults struct {
	DefaultTarget float64            `yaml:"default_target"`
	InitialTemps  map[string]float64 `yaml:"initial_temps"`
}

// TempRange bounds the target temperature an operator may request.
type TempRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Config is the whole tunable surface of the scheduler: capacity, time
// scaling, the fan tariff table, per-mode defaults and the HTTP/DB surface.
// It loads from an optional YAML file and otherwise falls back to the
// bit-exact defaults below.
type Config struct {
	MaxServices int     `yaml:"max_services"`
	TimeScale   float64 `yaml:"time_scale"`
	TimeSlice   float64 `yaml:"time_slice_seconds"`
	RecoverRate float64 `yaml:"recover_rate_per_min"`
	Epsilon     float64 `yaml:"epsilon"`
	Hysteresis  float64 `yaml:"hysteresis_delta"`

	Fans map[types.FanSpeed]FanProfile `yaml:"fans"`

	Modes map[types.Mode]ModeDefaults `yaml:"modes"`

	TempRanges map[types.Mode]TempRange `yaml:"temp_ranges"`

	RoomIDs []string `yaml:"room_ids"`

	TickInterval string `yaml:"tick_interval"`
	ServerPort   int    `yaml:"server_port"`
	DBPath       string `yaml:"db_path"`
}

// Default returns the bit-exact defaults named by spec.md §6, used whenever
// no YAML file is supplied.
func Default() *Config {
	return &Config{
		MaxServices: 3,
		TimeScale:   6,
		TimeSlice:   120,
		RecoverRate: 0.5,
		Epsilon:     0.001,
		Hysteresis:  1.0,
		Fans: map[types.FanSpeed]FanProfile{
			types.FanLow:    {Priority: 1, RatePerMin: 1.0 / 3.0, FeeRatePerMin: 1.0 / 3.0},
			types.FanMedium: {Priority: 2, RatePerMin: 1.0 / 2.0, FeeRatePerMin: 1.0 / 2.0},
			types.FanHigh:   {Priority: 3, RatePerMin: 1.0, FeeRatePerMin: 1.0},
		},
		Modes: map[types.Mode]ModeDefaults{
			types.ModeCool: {
				DefaultTarget: 25.0,
				InitialTemps: map[string]float64{
					"101": 32.0, "102": 28.0, "103": 30.0, "104": 29.0, "105": 35.0,
				},
			},
			types.ModeHeat: {
				DefaultTarget: 23.0,
				InitialTemps: map[string]float64{
					"101": 10.0, "102": 15.0, "103": 18.0, "104": 12.0, "105": 14.0,
				},
			},
		},
		TempRanges: map[types.Mode]TempRange{
			types.ModeCool: {Min: 18, Max: 30},
			types.ModeHeat: {Min: 16, Max: 28},
		},
		RoomIDs:      []string{"101", "102", "103", "104", "105"},
		TickInterval: "200ms",
		ServerPort:   8080,
		DBPath:       "hotel.db",
	}
}

// Load reads a YAML config file and overlays it onto Default(). A missing
// path is not an error: the caller gets the defaults back untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SortedRoomIDs returns RoomIDs in a stable ascending order, used anywhere
// the scheduler must iterate rooms deterministically (tick loop, listing).
func (c *Config) SortedRoomIDs() []string {
	ids := make([]string, len(c.RoomIDs))
	copy(ids, c.RoomIDs)
	sort.Strings(ids)
	return ids
}

// FanProfileFor looks up the tagged fan-speed row, falling back to medium if
// an unknown tag somehow reaches this layer (validation should already have
// rejected it upstream).
func (c *Config) FanProfileFor(fan types.FanSpeed) FanProfile {
	if p, ok := c.Fans[fan]; ok {
		return p
	}
	return c.Fans[types.FanMedium]
}

func (c *Config) ValidFan(fan types.FanSpeed) bool {
	_, ok := c.Fans[fan]
	return ok
}

func (c *Config) ValidMode(mode types.Mode) bool {
	_, ok := c.Modes[mode]
	return ok
}

func (c *Config) ValidTarget(mode types.Mode, target float64) bool {
	r, ok := c.TempRanges[mode]
	if !ok {
		return true
	}
	return target >= r.Min && target <= r.Max
}
