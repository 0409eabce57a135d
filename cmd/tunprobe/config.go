package main

import (
	"fmt"
	"net/netip"
	"time"

	"tunprobe/internal/config"
	"tunprobe/internal/netcfg"
	"tunprobe/internal/packet"
	"tunprobe/internal/probe"
	"tunprobe/internal/tun"
)

// kernelAssignedName as tun_name leaves naming to the kernel (tun%d).
const kernelAssignedName = "-"

type Config struct {
	TunName       string        `yaml:"tun_name"`
	Backend       string        `yaml:"backend"`
	Address       string        `yaml:"address"`
	MTU           int           `yaml:"mtu"`
	Routes        []RouteConfig `yaml:"routes"`
	ReadSize      int           `yaml:"read_size"`
	ReadsPerProbe int           `yaml:"reads_per_probe"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	Rate          float64       `yaml:"rate"`
	LogLevel      string        `yaml:"log_level"`
	LogJSON       bool          `yaml:"log_json"`
	MetricsAddr   string        `yaml:"metrics_addr"`
	Probes        []ProbeConfig `yaml:"probes"`
}

type RouteConfig struct {
	Dest    string `yaml:"dest"`
	Gateway string `yaml:"gateway"`
}

type ProbeConfig struct {
	Src     string `yaml:"src"`
	Dst     string `yaml:"dst"`
	SrcPort int    `yaml:"src_port"`
	DstPort int    `yaml:"dst_port"`
	TTL     int    `yaml:"ttl"`
	ID      int    `yaml:"id"`
	Payload string `yaml:"payload"`
}

// LoadConfig reads path, or starts from an empty config when path is empty,
// applies overrides and fills in defaults. The defaults reproduce the
// classic two-packet run on tun1.
func LoadConfig(path string, overrides ...func(*Config)) (Config, error) {
	cfg := Config{}
	if path != "" {
		if err := config.Load(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	for _, o := range overrides {
		o(&cfg)
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.TunName == "" {
		cfg.TunName = "tun1"
	}
	if cfg.Backend == "" {
		cfg.Backend = string(tun.BackendIoctl)
	}
	if cfg.ReadSize == 0 {
		cfg.ReadSize = probe.DefaultReadSize
	}
	if cfg.ReadsPerProbe == 0 {
		cfg.ReadsPerProbe = 1
	}
	if len(cfg.Probes) == 0 {
		cfg.Probes = []ProbeConfig{
			{Src: "1.2.3.5", Dst: "5.6.7.9", SrcPort: 6789, DstPort: 443, Payload: "Hello world"},
			{Src: "1.2.3.5", Dst: "5.6.7.9", SrcPort: 6789, DstPort: 443, Payload: "Hi again"},
		}
	}
	for i := range cfg.Probes {
		if cfg.Probes[i].TTL == 0 {
			cfg.Probes[i].TTL = packet.DefaultTTL
		}
		if cfg.Probes[i].ID == 0 {
			cfg.Probes[i].ID = packet.DefaultID
		}
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.TunName) >= tun.IFNAMSIZ {
		return fmt.Errorf("tun_name %q: %w", cfg.TunName, tun.ErrNameTooLong)
	}
	backend, err := tun.ParseBackend(cfg.Backend)
	if err != nil {
		return err
	}
	if backend == tun.BackendWater && cfg.ReadTimeout > 0 {
		return fmt.Errorf("read_timeout needs the ioctl backend: water reads cannot time out")
	}
	if err := cfg.interfaceConfig().Validate(); err != nil {
		return err
	}
	if cfg.Address == "" && len(cfg.Routes) > 0 {
		return fmt.Errorf("routes require address")
	}
	if cfg.ReadSize < 0 || cfg.ReadSize > 65535 {
		return fmt.Errorf("read_size out of range: %d", cfg.ReadSize)
	}
	if cfg.ReadsPerProbe < 0 {
		return fmt.Errorf("reads_per_probe must not be negative")
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative")
	}
	if cfg.Rate < 0 {
		return fmt.Errorf("rate must not be negative")
	}
	if _, err := cfg.BuildProbes(); err != nil {
		return err
	}
	return nil
}

// deviceName is the name requested from the kernel.
func (cfg Config) deviceName() string {
	if cfg.TunName == kernelAssignedName {
		return ""
	}
	return cfg.TunName
}

func (cfg Config) interfaceConfig() netcfg.InterfaceConfig {
	return netcfg.InterfaceConfig{Name: cfg.TunName, Address: cfg.Address, MTU: cfg.MTU}
}

func (cfg Config) routes() []netcfg.Route {
	out := make([]netcfg.Route, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		out = append(out, netcfg.Route{Dest: r.Dest, Gateway: r.Gateway})
	}
	return out
}

func (cfg Config) runnerOptions() probe.Options {
	return probe.Options{
		ReadSize:      cfg.ReadSize,
		ReadsPerProbe: cfg.ReadsPerProbe,
		ReadTimeout:   cfg.ReadTimeout,
		Rate:          cfg.Rate,
	}
}

func (cfg Config) BuildProbes() ([]packet.Probe, error) {
	out := make([]packet.Probe, 0, len(cfg.Probes))
	for i, pc := range cfg.Probes {
		p, err := pc.probe()
		if err != nil {
			return nil, fmt.Errorf("probes[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (pc ProbeConfig) probe() (packet.Probe, error) {
	src, err := netip.ParseAddr(pc.Src)
	if err != nil {
		return packet.Probe{}, fmt.Errorf("src: %w", err)
	}
	dst, err := netip.ParseAddr(pc.Dst)
	if err != nil {
		return packet.Probe{}, fmt.Errorf("dst: %w", err)
	}
	if !src.Is4() || !dst.Is4() {
		return packet.Probe{}, packet.ErrNotIPv4
	}
	if pc.SrcPort < 0 || pc.SrcPort > 65535 {
		return packet.Probe{}, fmt.Errorf("src_port out of range: %d", pc.SrcPort)
	}
	if pc.DstPort < 1 || pc.DstPort > 65535 {
		return packet.Probe{}, fmt.Errorf("dst_port out of range: %d", pc.DstPort)
	}
	if pc.TTL < 1 || pc.TTL > 255 {
		return packet.Probe{}, fmt.Errorf("ttl out of range: %d", pc.TTL)
	}
	if pc.ID < 0 || pc.ID > 65535 {
		return packet.Probe{}, fmt.Errorf("id out of range: %d", pc.ID)
	}
	return packet.Probe{
		Src:     src,
		Dst:     dst,
		SrcPort: uint16(pc.SrcPort),
		DstPort: uint16(pc.DstPort),
		TTL:     uint8(pc.TTL),
		ID:      uint16(pc.ID),
		Payload: []byte(pc.Payload),
	}, nil
}
