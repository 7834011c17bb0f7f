//go:build !linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Placeholder so non-linux builds compile; socketcan not supported.
func initSocketCANBackend(ctx context.Context, cfg *appConfig, l *slog.Logger, wg *sync.WaitGroup) (busWriter, func(rxPush), func(), error) {
	return nil, nil, func() {}, fmt.Errorf("socketcan backend unsupported on this platform")
}
