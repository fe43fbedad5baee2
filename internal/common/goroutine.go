// -----------------------------------------------------------------------
// Safe Goroutine - Panic-protected goroutine wrapper
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/ternarybob/arbor"
)

// activeGoroutines tracks goroutines spawned via SafeGo that have not returned
var activeGoroutines int64

// GetActiveGoroutines returns the number of SafeGo goroutines still running
func GetActiveGoroutines() int64 {
	return atomic.LoadInt64(&activeGoroutines)
}

// SafeGo runs fn in a goroutine with panic recovery.
// A panic is logged with its stack and the goroutine exits; the process keeps running.
// onPanic, when non-nil, is invoked with the recovered value after logging.
//
// Example:
//
//	common.SafeGo(logger, "scrapeJob", func() {
//	    runner.run(ctx, job)
//	}, nil)
func SafeGo(logger arbor.ILogger, name string, fn func(), onPanic func(recovered interface{})) {
	atomic.AddInt64(&activeGoroutines, 1)

	go func() {
		defer atomic.AddInt64(&activeGoroutines, -1)
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				stackTrace := string(buf[:n])

				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", stackTrace).
						Msg("Recovered from panic in goroutine")
				} else {
					fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, stackTrace)
				}

				if onPanic != nil {
					onPanic(r)
				}
			}
		}()

		fn()
	}()
}
