/*
* logging.go
*
* Leveled logging shared by the pmana packages and tools
*
 */

package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/op/go-logging"
)

// global logger
var Log = logging.MustGetLogger("pmana")
var LogBackendLvl logging.LeveledBackend
var format = logging.MustStringFormatter(
	"%{color}%{time:15:04:05.000} %{level:.4s} [%{shortfunc}] ▶ %{message}%{color:reset}",
)
var plainFormat = logging.MustStringFormatter(
	"%{level:.4s} %{message}",
)

var currentBackends []logging.Backend

func AddBackend(backend logging.Backend) {
	currentBackends = append(currentBackends, backend)
	logging.SetBackend(currentBackends...)
}

// InitializeLogging sends INFO and above to stderr; stdout is kept for tool output.
func InitializeLogging() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	backendFormatter := logging.NewBackendFormatter(backend, format)
	LogBackendLvl = logging.AddModuleLevel(backendFormatter)
	LogBackendLvl.SetLevel(logging.INFO, "")
	AddBackend(LogBackendLvl)
}

// AddWriter attaches an uncolored sink with its own level, e.g. a log file
// next to the analysis output or a buffer in tests.
func AddWriter(w io.Writer, level string) (logging.LeveledBackend, error) {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", level, err)
	}
	backend := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), plainFormat)
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(lvl, "")
	AddBackend(leveled)
	return leveled, nil
}

func ConfigureLogging(level string) error {
	lvl, levelErr := logging.LogLevel(level)
	if levelErr != nil {
		return fmt.Errorf("invalid logging-level configuration value %q: %w", level, levelErr)
	}
	if LogBackendLvl == nil {
		InitializeLogging()
	}
	LogBackendLvl.SetLevel(lvl, "")
	return nil
}
