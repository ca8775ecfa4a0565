// Package graceful coordinates process shutdown: callbacks registered during
// startup are executed once a termination signal arrives.
package graceful

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

var (
	mu        sync.Mutex
	callbacks []func() error
)

// AddCallback registers fn to be executed on shutdown.
func AddCallback(fn func() error) {
	mu.Lock()
	defer mu.Unlock()
	callbacks = append(callbacks, fn)
}

// WaitShutdown blocks until SIGINT or SIGTERM is received, then runs all
// registered callbacks concurrently and returns the first error, if any.
func WaitShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mu.Lock()
	defer mu.Unlock()

	var group errgroup.Group
	for _, fn := range callbacks {
		group.Go(fn)
	}

	return group.Wait()
}
