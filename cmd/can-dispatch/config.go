package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	backend         string
	serialDev       string
	baud            int
	serialReadTO    time.Duration
	canIf           string
	linkUp          bool
	tableFile       string
	tickEvery       time.Duration
	pollEvery       time.Duration
	rxBuffer        int
	txBuffer        int
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	backend := flag.String("backend", "socketcan", "CAN backend: serial|socketcan (default socketcan)")
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path (when --backend=serial)")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	canIf := flag.String("can-if", "can0", "SocketCAN interface (when --backend=socketcan)")
	linkUp := flag.Bool("link-up", false, "Bring the SocketCAN interface up before opening (requires CAP_NET_ADMIN)")
	tableFile := flag.String("table", "", "TOML message table file; empty runs with no registered messages")
	tickEvery := flag.Duration("tick", time.Millisecond, "Tick counter resolution")
	pollEvery := flag.Duration("poll", 5*time.Millisecond, "Engine poll interval")
	rxBuf := flag.Int("rx-buffer", 64, "RX ring slots (usable capacity is one less)")
	txBuf := flag.Int("tx-buffer", 64, "TX ring slots (usable capacity is one less)")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement of the metrics endpoint")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default can-dispatch-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.backend = *backend
	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.canIf = *canIf
	cfg.linkUp = *linkUp
	cfg.tableFile = *tableFile
	cfg.tickEvery = *tickEvery
	cfg.pollEvery = *pollEvery
	cfg.rxBuffer = *rxBuf
	cfg.txBuffer = *txBuf
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open devices or files, only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.backend {
	case "serial", "socketcan":
	default:
		return fmt.Errorf("invalid backend: %s", c.backend)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.tickEvery <= 0 {
		return fmt.Errorf("tick must be > 0")
	}
	if c.pollEvery <= 0 {
		return fmt.Errorf("poll must be > 0")
	}
	if c.rxBuffer < 2 {
		return fmt.Errorf("rx-buffer must be >= 2 (got %d)", c.rxBuffer)
	}
	if c.txBuffer < 2 {
		return fmt.Errorf("tx-buffer must be >= 2 (got %d)", c.txBuffer)
	}
	if c.mdnsEnable && c.metricsAddr == "" {
		return errors.New("mdns-enable requires metrics-addr")
	}
	return nil
}

// applyEnvOverrides maps CAN_DISPATCH_* environment variables to config
// fields unless a corresponding flag was explicitly set. Empty values are
// ignored. Durations accept Go time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	str := func(flagName, env string, dst *string) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			*dst = v
		}
	}
	num := func(flagName, env string, dst *int, min int) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= min {
				*dst = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	dur := func(flagName, env string, dst *time.Duration, allowZero bool) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			d, err := time.ParseDuration(v)
			switch {
			case err != nil:
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid %s: %w", env, err)
				}
			case d > 0 || (allowZero && d == 0):
				*dst = d
			}
		}
	}
	boolean := func(flagName, env string, dst *bool) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	str("backend", "CAN_DISPATCH_BACKEND", &c.backend)
	str("serial", "CAN_DISPATCH_SERIAL", &c.serialDev)
	num("baud", "CAN_DISPATCH_BAUD", &c.baud, 1)
	dur("serial-read-timeout", "CAN_DISPATCH_SERIAL_READ_TIMEOUT", &c.serialReadTO, false)
	str("can-if", "CAN_DISPATCH_IF", &c.canIf)
	boolean("link-up", "CAN_DISPATCH_LINK_UP", &c.linkUp)
	str("table", "CAN_DISPATCH_TABLE", &c.tableFile)
	dur("tick", "CAN_DISPATCH_TICK", &c.tickEvery, false)
	dur("poll", "CAN_DISPATCH_POLL", &c.pollEvery, false)
	num("rx-buffer", "CAN_DISPATCH_RX_BUFFER", &c.rxBuffer, 2)
	num("tx-buffer", "CAN_DISPATCH_TX_BUFFER", &c.txBuffer, 2)
	str("log-format", "CAN_DISPATCH_LOG_FORMAT", &c.logFormat)
	str("log-level", "CAN_DISPATCH_LOG_LEVEL", &c.logLevel)
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("CAN_DISPATCH_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	dur("log-metrics-interval", "CAN_DISPATCH_LOG_METRICS_INTERVAL", &c.logMetricsEvery, true)
	boolean("mdns-enable", "CAN_DISPATCH_MDNS_ENABLE", &c.mdnsEnable)
	str("mdns-name", "CAN_DISPATCH_MDNS_NAME", &c.mdnsName)
	return firstErr
}
