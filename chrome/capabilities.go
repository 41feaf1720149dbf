// Package chrome provides ChromeDriver options for the webdriver package.
package chrome

import "fmt"

// CapabilitiesKey is the key in the top-level capabilities map under which
// ChromeDriver expects its options.
const CapabilitiesKey = "goog:chromeOptions"

// DeprecatedCapabilitiesKey is the pre-W3C spelling of CapabilitiesKey.
const DeprecatedCapabilitiesKey = "chromeOptions"

// Capabilities holds the ChromeDriver options this module sets. See
// https://chromedriver.chromium.org/capabilities for the full list.
type Capabilities struct {
	// Path is the Chrome binary to launch.
	Path string `json:"binary,omitempty"`
	// Args are extra command-line switches for Chrome.
	Args []string `json:"args,omitempty"`
	// ExcludeSwitches removes ChromeDriver default switches, named without
	// the leading "--".
	ExcludeSwitches []string `json:"excludeSwitches,omitempty"`
	// Prefs are applied to the user profile.
	Prefs map[string]interface{} `json:"prefs,omitempty"`
	// Detach keeps the browser alive after ChromeDriver exits.
	Detach *bool `json:"detach,omitempty"`
	// DebuggerAddr attaches to an already running Chrome.
	DebuggerAddr string `json:"debuggerAddress,omitempty"`
	// MobileEmulation emulates a device.
	MobileEmulation *MobileEmulation `json:"mobileEmulation,omitempty"`
	W3C             bool             `json:"w3c"`
}

// MobileEmulation selects a device by name, or describes one with
// DeviceMetrics and UserAgent.
type MobileEmulation struct {
	DeviceName    string         `json:"deviceName,omitempty"`
	DeviceMetrics *DeviceMetrics `json:"deviceMetrics,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
}

// DeviceMetrics specifies device attributes for emulation.
type DeviceMetrics struct {
	Width      uint    `json:"width"`
	Height     uint    `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	Touch      *bool   `json:"touch,omitempty"`
}

// SetHeadless runs Chrome without a window.
func (c *Capabilities) SetHeadless() {
	c.addArg("--headless=new")
}

// SetWindowSize fixes the initial window size. Layout-dependent visibility
// checks are only reproducible with a known size.
func (c *Capabilities) SetWindowSize(width, height int) {
	c.addArg(fmt.Sprintf("--window-size=%d,%d", width, height))
}

func (c *Capabilities) addArg(arg string) {
	for _, a := range c.Args {
		if a == arg {
			return
		}
	}
	c.Args = append(c.Args, arg)
}
