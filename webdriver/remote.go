// Remote WebDriver client implementation.
// See https://www.w3.org/TR/webdriver for the protocol.

package webdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wanmail/locate"
)

const (
	// DefaultURLPrefix is the default HTTP endpoint of a Selenium server.
	DefaultURLPrefix = "http://127.0.0.1:4444/wd/hub"
	// JSONType is JSON content type.
	JSONType = "application/json"
	// MaxRedirects is the maximum number of redirects to follow.
	MaxRedirects = 10

	// DefaultWaitInterval is the polling interval of WaitWithTimeout.
	DefaultWaitInterval = 100 * time.Millisecond

	w3cElementKey    = "element-6066-11e4-a52e-4f735466cecf"
	legacyElementKey = "ELEMENT"
)

type remoteWD struct {
	id, urlPrefix string
	capabilities  Capabilities
	w3c           bool
}

var httpClient *http.Client

// GetHTTPClient returns the HTTP client used for every request.
func GetHTTPClient() *http.Client {
	return httpClient
}

func newRequest(method string, url string, data []byte) (*http.Request, error) {
	request, err := http.NewRequest(method, url, bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	request.Header.Add("Accept", JSONType)
	if data != nil {
		request.Header.Add("Content-Type", JSONType+";charset=utf-8")
	}
	return request, nil
}

func cleanNils(buf []byte) {
	for i, b := range buf {
		if b == 0 {
			buf[i] = ' '
		}
	}
}

func (wd *remoteWD) requestURL(template string, args ...interface{}) string {
	return wd.urlPrefix + fmt.Sprintf(template, args...)
}

func (wd *remoteWD) execute(method, url string, data []byte) ([]byte, error) {
	debugLog("request", zap.String("method", method), zap.String("url", url), zap.ByteString("body", data))
	request, err := newRequest(method, url, data)
	if err != nil {
		return nil, err
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	buf, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("webdriver: reading reply to %s %s: %w", method, url, err)
	}
	debugLog("reply", zap.String("status", response.Status), zap.ByteString("body", buf))

	cleanNils(buf)
	if e := decodeError(buf, response.StatusCode); e != nil {
		return nil, e
	}
	return buf, nil
}

// NewRemote creates a new remote client and starts a session. urlPrefix is
// the URL of the WebDriver server, including the scheme; an empty string
// means DefaultURLPrefix.
func NewRemote(capabilities Capabilities, urlPrefix string) (WebDriver, error) {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	wd := &remoteWD{urlPrefix: strings.TrimSuffix(urlPrefix, "/"), capabilities: capabilities}
	if _, err := wd.NewSession(); err != nil {
		return nil, err
	}
	return wd, nil
}

func (wd *remoteWD) stringCommand(urlTemplate string) (string, error) {
	response, err := wd.execute("GET", wd.requestURL(urlTemplate, wd.id), nil)
	if err != nil {
		return "", err
	}

	reply := new(struct{ Value *string })
	if err := json.Unmarshal(response, reply); err != nil {
		return "", err
	}
	if reply.Value == nil {
		return "", errors.New("webdriver: nil return value")
	}
	return *reply.Value, nil
}

func (wd *remoteWD) voidCommand(urlTemplate string, params interface{}) error {
	// W3C ends reject a POST without a JSON object body.
	data := []byte("{}")
	if params != nil {
		var err error
		data, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := wd.execute("POST", wd.requestURL(urlTemplate, wd.id), data)
	return err
}

func (wd *remoteWD) boolCommand(urlTemplate string) (bool, error) {
	response, err := wd.execute("GET", wd.requestURL(urlTemplate, wd.id), nil)
	if err != nil {
		return false, err
	}

	reply := new(struct{ Value bool })
	if err := json.Unmarshal(response, reply); err != nil {
		return false, err
	}
	return reply.Value, nil
}

func (wd *remoteWD) Status() (*Status, error) {
	reply, err := wd.execute("GET", wd.requestURL("/status"), nil)
	if err != nil {
		return nil, err
	}

	status := new(struct{ Value Status })
	if err := json.Unmarshal(reply, status); err != nil {
		return nil, err
	}
	return &status.Value, nil
}

// w3cCapabilityNames are the capabilities a W3C end accepts without a
// vendor prefix.
var w3cCapabilityNames = map[string]bool{
	"browserName":               true,
	"browserVersion":            true,
	"platformName":              true,
	"acceptInsecureCerts":       true,
	"pageLoadStrategy":          true,
	"proxy":                     true,
	"timeouts":                  true,
	"unhandledPromptBehavior":   true,
	"strictFileInteractability": true,
	"setWindowRect":             true,
}

func w3cCapabilities(c Capabilities) map[string]interface{} {
	out := make(map[string]interface{})
	for k, v := range c {
		if w3cCapabilityNames[k] || strings.Contains(k, ":") {
			out[k] = v
		}
	}
	return out
}

func (wd *remoteWD) NewSession() (string, error) {
	// Both dialects are offered; each end reads the key it understands.
	data, err := json.Marshal(map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": w3cCapabilities(wd.capabilities),
		},
		"desiredCapabilities": wd.capabilities,
	})
	if err != nil {
		return "", err
	}

	response, err := wd.execute("POST", wd.requestURL("/session"), data)
	if err != nil {
		return "", err
	}

	reply := new(struct {
		SessionID *string `json:"sessionId"`
		Value     struct {
			SessionID string `json:"sessionId"`
		}
	})
	if err := json.Unmarshal(response, reply); err != nil {
		return "", err
	}

	switch {
	case reply.Value.SessionID != "":
		wd.id, wd.w3c = reply.Value.SessionID, true
	case reply.SessionID != nil && *reply.SessionID != "":
		wd.id, wd.w3c = *reply.SessionID, false
	default:
		return "", errors.New("webdriver: new session reply has no session id")
	}
	debugLog("session started", zap.String("id", wd.id), zap.Bool("w3c", wd.w3c))
	return wd.id, nil
}

// SessionID returns the current session ID.
func (wd *remoteWD) SessionID() string {
	return wd.id
}

func (wd *remoteWD) W3C() bool {
	return wd.w3c
}

func (wd *remoteWD) Quit() error {
	if wd.id == "" {
		return nil
	}
	_, err := wd.execute("DELETE", wd.requestURL("/session/%s", wd.id), nil)
	if err == nil {
		wd.id = ""
	}
	return err
}

func (wd *remoteWD) CurrentURL() (string, error) {
	return wd.stringCommand("/session/%s/url")
}

func (wd *remoteWD) Get(url string) error {
	return wd.voidCommand("/session/%s/url", map[string]string{"url": url})
}

func (wd *remoteWD) Title() (string, error) {
	return wd.stringCommand("/session/%s/title")
}

func (wd *remoteWD) PageSource() (string, error) {
	return wd.stringCommand("/session/%s/source")
}

// w3cLocator rewrites the strategies W3C dropped as CSS selectors.
func w3cLocator(by, value string) (string, string) {
	var loc locate.Locator
	switch by {
	case ByID:
		loc = locate.Locator{Kind: locate.KindID, Expr: value}
	case ByName:
		loc = locate.Locator{Kind: locate.KindName, Expr: value}
	default:
		return by, value
	}
	css, _ := loc.CSS()
	return ByCSSSelector, css
}

func (wd *remoteWD) find(by, value, suffix, url string) ([]byte, error) {
	if wd.w3c {
		by, value = w3cLocator(by, value)
	}
	data, err := json.Marshal(map[string]string{
		"using": by,
		"value": value,
	})
	if err != nil {
		return nil, err
	}

	if url == "" {
		url = "/session/%s/element"
	}
	return wd.execute("POST", wd.requestURL(url+suffix, wd.id), data)
}

func elementID(ref map[string]string) string {
	if id := ref[w3cElementKey]; id != "" {
		return id
	}
	return ref[legacyElementKey]
}

func (wd *remoteWD) decodeElement(data []byte) (WebElement, error) {
	reply := new(struct{ Value map[string]string })
	if err := json.Unmarshal(data, reply); err != nil {
		return nil, err
	}
	id := elementID(reply.Value)
	if id == "" {
		return nil, fmt.Errorf("webdriver: invalid element reference %v", reply.Value)
	}
	return &remoteWE{wd, id}, nil
}

func (wd *remoteWD) decodeElements(data []byte) ([]WebElement, error) {
	reply := new(struct{ Value []map[string]string })
	if err := json.Unmarshal(data, reply); err != nil {
		return nil, err
	}

	elems := make([]WebElement, len(reply.Value))
	for i, ref := range reply.Value {
		id := elementID(ref)
		if id == "" {
			return nil, fmt.Errorf("webdriver: invalid element reference %v", ref)
		}
		elems[i] = &remoteWE{wd, id}
	}
	return elems, nil
}

func (wd *remoteWD) FindElement(by, value string) (WebElement, error) {
	response, err := wd.find(by, value, "", "")
	if err != nil {
		return nil, err
	}
	return wd.decodeElement(response)
}

func (wd *remoteWD) FindElements(by, value string) ([]WebElement, error) {
	response, err := wd.find(by, value, "s", "")
	if err != nil {
		return nil, err
	}
	return wd.decodeElements(response)
}

func (wd *remoteWD) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	if args == nil {
		args = make([]interface{}, 0)
	}
	data, err := json.Marshal(map[string]interface{}{
		"script": script,
		"args":   args,
	})
	if err != nil {
		return nil, err
	}

	path := "/session/%s/execute"
	if wd.w3c {
		path += "/sync"
	}
	response, err := wd.execute("POST", wd.requestURL(path, wd.id), data)
	if err != nil {
		return nil, err
	}

	reply := new(struct{ Value interface{} })
	if err = json.Unmarshal(response, reply); err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (wd *remoteWD) WaitWithTimeoutAndInterval(condition Condition, timeout, interval time.Duration) error {
	return poll(context.Background(), func() (bool, error) { return condition(wd) }, timeout, interval)
}

func (wd *remoteWD) WaitWithTimeout(condition Condition, timeout time.Duration) error {
	return wd.WaitWithTimeoutAndInterval(condition, timeout, DefaultWaitInterval)
}

type remoteWE struct {
	parent *remoteWD
	id     string
}

func (elem *remoteWE) ID() string {
	return elem.id
}

func (elem *remoteWE) String() string {
	return "element " + elem.id
}

func (elem *remoteWE) Click() error {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/click", elem.id)
	return elem.parent.voidCommand(urlTemplate, nil)
}

func (elem *remoteWE) SendKeys(keys string) error {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/value", elem.id)
	return elem.parent.voidCommand(urlTemplate, processKeyString(keys))
}

// processKeyString builds a body both dialects accept: W3C reads "text",
// JSON Wire reads "value".
func processKeyString(keys string) interface{} {
	chars := make([]string, 0, len(keys))
	for _, c := range keys {
		chars = append(chars, string(c))
	}
	return map[string]interface{}{"text": keys, "value": chars}
}

func (elem *remoteWE) Clear() error {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/clear", elem.id)
	return elem.parent.voidCommand(urlTemplate, nil)
}

func (elem *remoteWE) TagName() (string, error) {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/name", elem.id)
	return elem.parent.stringCommand(urlTemplate)
}

func (elem *remoteWE) Text() (string, error) {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/text", elem.id)
	return elem.parent.stringCommand(urlTemplate)
}

func (elem *remoteWE) FindElement(by, value string) (WebElement, error) {
	url := fmt.Sprintf("/session/%%s/element/%s/element", elem.id)
	response, err := elem.parent.find(by, value, "", url)
	if err != nil {
		return nil, err
	}
	return elem.parent.decodeElement(response)
}

func (elem *remoteWE) FindElements(by, value string) ([]WebElement, error) {
	url := fmt.Sprintf("/session/%%s/element/%s/element", elem.id)
	response, err := elem.parent.find(by, value, "s", url)
	if err != nil {
		return nil, err
	}
	return elem.parent.decodeElements(response)
}

func (elem *remoteWE) boolQuery(urlTemplate string) (bool, error) {
	return elem.parent.boolCommand(fmt.Sprintf(urlTemplate, elem.id))
}

func (elem *remoteWE) IsSelected() (bool, error) {
	return elem.boolQuery("/session/%%s/element/%s/selected")
}

func (elem *remoteWE) IsEnabled() (bool, error) {
	return elem.boolQuery("/session/%%s/element/%s/enabled")
}

func (elem *remoteWE) IsDisplayed() (bool, error) {
	return elem.boolQuery("/session/%%s/element/%s/displayed")
}

func (elem *remoteWE) GetAttribute(name string) (string, error) {
	urlTemplate := fmt.Sprintf("/session/%%s/element/%s/attribute/%s", elem.id, name)
	return elem.parent.stringCommand(urlTemplate)
}

func (elem *remoteWE) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		legacyElementKey: elem.id,
		w3cElementKey:    elem.id,
	})
}

func init() {
	// http.Client doesn't copy request headers, and WebDriver ends require
	// Accept on every hop.
	httpClient = &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > MaxRedirects {
				return fmt.Errorf("too many redirects (%d)", len(via))
			}
			req.Header.Add("Accept", JSONType)
			return nil
		},
	}
}
