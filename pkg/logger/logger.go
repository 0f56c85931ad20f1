// Package logger provides stdlib log.Logger constructors for libraries
// that cannot take an slog handle, like cron's PrintfLogger.
package logger

import (
	"fmt"
	"log"
	"os"
)

// New returns a stdlib-backed logger with a component prefix.
func New(component string) *log.Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lmsgprefix)
}
