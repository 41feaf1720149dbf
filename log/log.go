// Package log holds the driver-side logging preferences that can be sent
// with WebDriver capabilities. It does not configure this module's own
// logger.
package log

import (
	"fmt"
	"strings"
)

// Type is a component capable of logging.
type Type string

// The valid log types.
const (
	Server      Type = "server"
	Browser     Type = "browser"
	Client      Type = "client"
	Driver      Type = "driver"
	Performance Type = "performance"
)

// Level is a logging level understood by ChromeDriver and Selenium.
type Level string

// The valid log levels.
const (
	Off     Level = "OFF"
	Severe  Level = "SEVERE"
	Warning Level = "WARNING"
	Info    Level = "INFO"
	Debug   Level = "DEBUG"
	All     Level = "ALL"
)

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case Off, Severe, Warning, Info, Debug, All:
		return l, nil
	}
	return "", fmt.Errorf("unknown driver log level %q", s)
}

// CapabilitiesKey is the capabilities entry for logging preferences.
// Chrome 75 renamed it from "loggingPrefs".
const CapabilitiesKey = "goog:loggingPrefs"

// Capabilities maps components to the level they should log at.
type Capabilities map[Type]Level
