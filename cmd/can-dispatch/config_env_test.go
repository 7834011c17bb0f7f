package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := validConfig()

	os.Setenv("CAN_DISPATCH_BAUD", "230400")
	os.Setenv("CAN_DISPATCH_TICK", "2ms")
	os.Setenv("CAN_DISPATCH_MDNS_ENABLE", "true")
	os.Setenv("CAN_DISPATCH_LOG_METRICS_INTERVAL", "5s")
	os.Setenv("CAN_DISPATCH_TABLE", "/etc/can-dispatch/table.toml")
	t.Cleanup(func() {
		os.Unsetenv("CAN_DISPATCH_BAUD")
		os.Unsetenv("CAN_DISPATCH_TICK")
		os.Unsetenv("CAN_DISPATCH_MDNS_ENABLE")
		os.Unsetenv("CAN_DISPATCH_LOG_METRICS_INTERVAL")
		os.Unsetenv("CAN_DISPATCH_TABLE")
	})
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.baud != 230400 {
		t.Fatalf("expected baud override, got %d", base.baud)
	}
	if base.tickEvery != 2*time.Millisecond {
		t.Fatalf("expected tickEvery 2ms got %v", base.tickEvery)
	}
	if !base.mdnsEnable {
		t.Fatalf("expected mdnsEnable true")
	}
	if base.logMetricsEvery != 5*time.Second {
		t.Fatalf("expected logMetricsEvery 5s got %v", base.logMetricsEvery)
	}
	if base.tableFile != "/etc/can-dispatch/table.toml" {
		t.Fatalf("expected tableFile override, got %q", base.tableFile)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := &appConfig{baud: 115200}
	os.Setenv("CAN_DISPATCH_BAUD", "230400")
	t.Cleanup(func() { os.Unsetenv("CAN_DISPATCH_BAUD") })
	if err := applyEnvOverrides(base, map[string]struct{}{"baud": {}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.baud != 115200 {
		t.Fatalf("flag-set value must win, got %d", base.baud)
	}
}

func TestApplyEnvOverrides_BadValue(t *testing.T) {
	base := &appConfig{baud: 115200}
	os.Setenv("CAN_DISPATCH_BAUD", "fast")
	t.Cleanup(func() { os.Unsetenv("CAN_DISPATCH_BAUD") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatalf("expected error for non-numeric baud")
	}
	if base.baud != 115200 {
		t.Fatalf("bad value must not be applied, got %d", base.baud)
	}
}
