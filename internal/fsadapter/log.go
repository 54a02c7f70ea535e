package fsadapter

import "log"

// Logger is a two-level wrapper around the standard library's log
// package: warnings always print, info lines only print when Verbose
// is set. There is no third-party logging dependency here; a daemon
// this small has nothing for a structured logger to buy it over
// log.Printf plus a level check.
type Logger struct {
	Verbose bool
}

func (l Logger) Warnf(format string, args ...any) {
	log.Printf("WARN "+format, args...)
}

func (l Logger) Infof(format string, args ...any) {
	if !l.Verbose {
		return
	}
	log.Printf("INFO "+format, args...)
}
