package main

import (
	"testing"
	"time"
)

func validConfig() *appConfig {
	return &appConfig{
		backend:      "serial",
		serialDev:    "/dev/null",
		baud:         115200,
		serialReadTO: 10 * time.Millisecond,
		canIf:        "can0",
		tickEvery:    time.Millisecond,
		pollEvery:    5 * time.Millisecond,
		rxBuffer:     64,
		txBuffer:     64,
		logFormat:    "text",
		logLevel:     "info",
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badBackend", func(c *appConfig) { c.backend = "x" }},
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badBaud", func(c *appConfig) { c.baud = 0 }},
		{"badSerialTO", func(c *appConfig) { c.serialReadTO = 0 }},
		{"badTick", func(c *appConfig) { c.tickEvery = 0 }},
		{"badPoll", func(c *appConfig) { c.pollEvery = 0 }},
		{"badRxBuf", func(c *appConfig) { c.rxBuffer = 1 }},
		{"badTxBuf", func(c *appConfig) { c.txBuffer = 1 }},
		{"mdnsNoMetrics", func(c *appConfig) { c.mdnsEnable = true }},
	}
	for _, tc := range tests {
		base := validConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
