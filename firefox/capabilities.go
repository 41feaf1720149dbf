// Package firefox provides geckodriver options for the webdriver package.
package firefox

// CapabilitiesKey is the name of the Firefox-specific key in the WebDriver
// capabilities object.
const CapabilitiesKey = "moz:firefoxOptions"

// Capabilities provides Firefox-specific options to WebDriver.
type Capabilities struct {
	// Binary is the absolute path of the Firefox binary. When empty,
	// geckodriver looks in the default install location.
	Binary string `json:"binary,omitempty"`
	// Args are command line arguments for Firefox, including any leading
	// dashes.
	Args []string `json:"args,omitempty"`
	Log  *Log     `json:"log,omitempty"`
	// Prefs maps preference names to string, boolean or integer values.
	Prefs map[string]interface{} `json:"prefs,omitempty"`
}

// SetHeadless runs Firefox without a window.
func (c *Capabilities) SetHeadless() {
	for _, a := range c.Args {
		if a == "-headless" {
			return
		}
	}
	c.Args = append(c.Args, "-headless")
}

// LogLevel is a geckodriver log level.
type LogLevel string

// Levels of logging that can be specified in the Log structure.
const (
	Trace LogLevel = "trace"
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
)

// Log specifies how Firefox should log debug data.
type Log struct {
	Level LogLevel `json:"level"`
}
