// -----------------------------------------------------------------------
// Safe Goroutine - Panic-protected goroutine wrappers
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ternarybob/arbor"
)

// GetStackTrace returns the current goroutine's stack trace
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false) // false = current goroutine only
	return string(buf[:n])
}

// SafeGo runs a function in a goroutine with panic recovery.
// Panics are logged but don't crash the service.
// Use this for async operations like scheduled triggers where failure should
// not be fatal.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stackTrace := GetStackTrace()
				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", stackTrace).
						Msg("Recovered from panic in goroutine - continuing service operation")
				} else {
					fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, stackTrace)
				}
			}
		}()

		fn()
	}()
}
