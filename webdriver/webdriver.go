// Package webdriver is a client for the WebDriver wire protocol, speaking
// both the W3C dialect and the older JSON Wire dialect still served by some
// Selenium grids. NewPage adapts a session to locate.Page.
package webdriver

import (
	"time"

	"github.com/wanmail/locate/chrome"
	"github.com/wanmail/locate/firefox"
	"github.com/wanmail/locate/log"
)

// Methods by which to find elements.
const (
	ByID              = "id"
	ByXPATH           = "xpath"
	ByLinkText        = "link text"
	ByPartialLinkText = "partial link text"
	ByName            = "name"
	ByTagName         = "tag name"
	ByCSSSelector     = "css selector"
)

// Special keys for SendKeys.
const (
	BackspaceKey = string('\ue003')
	TabKey       = string('\ue004')
	ReturnKey    = string('\ue006')
	EnterKey     = string('\ue007')
	ShiftKey     = string('\ue008')
	ControlKey   = string('\ue009')
	EscapeKey    = string('\ue00c')
	SpaceKey     = string('\ue00d')
	DeleteKey    = string('\ue017')
)

// Capabilities configures both the WebDriver process and the target browsers,
// with standard and browser-specific options.
type Capabilities map[string]interface{}

// AddChrome adds Chrome-specific capabilities.
func (c Capabilities) AddChrome(f chrome.Capabilities) {
	c[chrome.CapabilitiesKey] = f
	c[chrome.DeprecatedCapabilitiesKey] = f
}

// AddFirefox adds Firefox-specific capabilities.
func (c Capabilities) AddFirefox(f firefox.Capabilities) {
	c[firefox.CapabilitiesKey] = f
}

// AddLogging adds logging configuration to the capabilities.
func (c Capabilities) AddLogging(l log.Capabilities) {
	c[log.CapabilitiesKey] = l
}

// SetLogLevel sets the logging level of a component. It is a shortcut for
// passing a log.Capabilities instance to AddLogging.
func (c Capabilities) SetLogLevel(typ log.Type, level log.Level) {
	if _, ok := c[log.CapabilitiesKey]; !ok {
		c[log.CapabilitiesKey] = make(log.Capabilities)
	}
	m := c[log.CapabilitiesKey].(log.Capabilities)
	m[typ] = level
}

// Status contains information returned by the Status method.
type Status struct {
	// Selenium and legacy ChromeDriver fill these.
	Build struct {
		Version, Revision, Time string
	}
	OS struct {
		Arch, Name, Version string
	}

	// W3C fields.
	Ready   bool
	Message string
}

// Condition is polled by the Wait methods until it returns true or an
// error.
type Condition func(wd WebDriver) (bool, error)

// WebDriver is one browser session.
type WebDriver interface {
	// Status returns various pieces of information about the server environment.
	Status() (*Status, error)
	// NewSession starts a new session and returns the session ID.
	NewSession() (string, error)
	// SessionID returns the current session ID.
	SessionID() string
	// W3C reports whether the session speaks the W3C dialect.
	W3C() bool
	// Quit ends the current session. The browser instance will be closed.
	Quit() error

	// Get navigates the browser to the provided URL.
	Get(url string) error
	// CurrentURL returns the browser's current URL.
	CurrentURL() (string, error)
	// Title returns the current page's title.
	Title() (string, error)
	// PageSource returns the current page's source.
	PageSource() (string, error)

	// FindElement finds exactly one element in the current page's DOM.
	FindElement(by, value string) (WebElement, error)
	// FindElements finds every matching element. No match is not an error.
	FindElements(by, value string) ([]WebElement, error)

	// ExecuteScript executes a script.
	ExecuteScript(script string, args []interface{}) (interface{}, error)

	// WaitWithTimeoutAndInterval waits for the condition to evaluate to true.
	WaitWithTimeoutAndInterval(condition Condition, timeout, interval time.Duration) error
	// WaitWithTimeout works like WaitWithTimeoutAndInterval, but with the
	// default polling interval.
	WaitWithTimeout(condition Condition, timeout time.Duration) error
}

// WebElement is a handle on an element of the current page.
type WebElement interface {
	// ID is the driver's reference for the element.
	ID() string

	// Click clicks on the element.
	Click() error
	// SendKeys types into the element.
	SendKeys(keys string) error
	// Clear clears the element.
	Clear() error

	// FindElement finds a child element.
	FindElement(by, value string) (WebElement, error)
	// FindElements finds multiple children elements.
	FindElements(by, value string) ([]WebElement, error)

	// TagName returns the element's name.
	TagName() (string, error)
	// Text returns the text of the element.
	Text() (string, error)
	// IsSelected returns true if element is selected.
	IsSelected() (bool, error)
	// IsEnabled returns true if the element is enabled.
	IsEnabled() (bool, error)
	// IsDisplayed returns true if the element is displayed.
	IsDisplayed() (bool, error)
	// GetAttribute returns the named attribute of the element.
	GetAttribute(name string) (string, error)
}
