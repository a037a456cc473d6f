// Package config binds the execution core's tunables (optimizer level,
// hot threshold, target architecture, ...) to viper/pflag, the way the
// pack's CLI-fronted repos (saferwall/pe, grafana/k6) layer configuration
// over a cobra command.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// OptLevel mirrors the optimizer levels from spec §4.6.
type OptLevel string

const (
	OptNone  OptLevel = "none"
	OptO1    OptLevel = "o1"
	OptO2    OptLevel = "o2"
	OptO3    OptLevel = "o3"
	OptSize  OptLevel = "size"
	OptSpeed OptLevel = "speed"
)

// Arch selects the architecture-specific emitter (spec §6/§9 Design
// Notes: one interface, three implementations, selected at engine
// construction — never via build tags at call sites).
type Arch string

const (
	ArchAMD64   Arch = "amd64"
	ArchARM64   Arch = "arm64"
	ArchRISCV64 Arch = "riscv64"
)

// Config holds every tunable exposed across the tiers.
type Config struct {
	OptLevel      OptLevel `mapstructure:"opt_level"`
	Arch          Arch     `mapstructure:"arch"`
	HotThreshold  int      `mapstructure:"hot_threshold"`
	MaxAttempts   int      `mapstructure:"max_attempts"`
	MaxTraces     int      `mapstructure:"max_traces"`
	MemoryBudget  int64    `mapstructure:"memory_budget"`
	MaxTraceLen   int      `mapstructure:"max_trace_length"`
	MaxGuards     int      `mapstructure:"max_guards"`
	RecordTimeout int      `mapstructure:"record_timeout_ms"`
	DebugInfo     bool     `mapstructure:"debug_info"`
}

// Defaults returns the documented defaults (spec §9 Open Question #2:
// "treat them as configuration with documented defaults").
func Defaults() Config {
	return Config{
		OptLevel:      OptO2,
		Arch:          ArchAMD64,
		HotThreshold:  10,
		MaxAttempts:   3,
		MaxTraces:     4096,
		MemoryBudget:  64 << 20, // 64 MiB
		MaxTraceLen:   2000,
		MaxGuards:     64,
		RecordTimeout: 50,
		DebugInfo:     false,
	}
}

// BindFlags registers the config's flags on fs and binds them through v
// (--opt-level, --hot-threshold, --arch, ...). No command in this module
// calls it; its tests drive it directly.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) {
	d := Defaults()
	fs.String("opt-level", string(d.OptLevel), "optimizer level: none|o1|o2|o3|size|speed")
	fs.String("arch", string(d.Arch), "target architecture: amd64|arm64|riscv64")
	fs.Int("hot-threshold", d.HotThreshold, "bytecode address entry count before tracing starts")
	fs.Int("max-attempts", d.MaxAttempts, "max trace recording attempts per location")
	fs.Int("max-traces", d.MaxTraces, "max simultaneously compiled traces")
	fs.Int64("memory-budget", d.MemoryBudget, "JIT code cache byte budget")
	fs.Int("max-trace-length", d.MaxTraceLen, "max IR instructions per recorded trace")
	fs.Int("max-guards", d.MaxGuards, "max guards per recorded trace")
	fs.Int("record-timeout-ms", d.RecordTimeout, "trace recording timeout in milliseconds")
	fs.Bool("debug-info", d.DebugInfo, "attach bytecode<->native offset maps")

	v.SetEnvPrefix("AEROJS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(fs)
}

// Load materializes a Config from a bound viper instance, falling back to
// Defaults() for anything unset.
func Load(v *viper.Viper) Config {
	cfg := Defaults()
	if v == nil {
		return cfg
	}
	if s := v.GetString("opt-level"); s != "" {
		cfg.OptLevel = OptLevel(s)
	}
	if s := v.GetString("arch"); s != "" {
		cfg.Arch = Arch(s)
	}
	if v.IsSet("hot-threshold") {
		cfg.HotThreshold = v.GetInt("hot-threshold")
	}
	if v.IsSet("max-attempts") {
		cfg.MaxAttempts = v.GetInt("max-attempts")
	}
	if v.IsSet("max-traces") {
		cfg.MaxTraces = v.GetInt("max-traces")
	}
	if v.IsSet("memory-budget") {
		cfg.MemoryBudget = v.GetInt64("memory-budget")
	}
	if v.IsSet("max-trace-length") {
		cfg.MaxTraceLen = v.GetInt("max-trace-length")
	}
	if v.IsSet("max-guards") {
		cfg.MaxGuards = v.GetInt("max-guards")
	}
	if v.IsSet("record-timeout-ms") {
		cfg.RecordTimeout = v.GetInt("record-timeout-ms")
	}
	if v.IsSet("debug-info") {
		cfg.DebugInfo = v.GetBool("debug-info")
	}
	return cfg
}
