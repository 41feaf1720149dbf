// Package fakewd is an in-process WebDriver end for tests. It serves a
// subset of the W3C protocol, or the JSON Wire dialect with Legacy, over an
// htmlpage.Document.
package fakewd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/wanmail/locate"
	"github.com/wanmail/locate/htmlpage"
)

const (
	w3cElementKey    = "element-6066-11e4-a52e-4f735466cecf"
	legacyElementKey = "ELEMENT"
)

// Server is a fake WebDriver end. URL is the prefix to pass to
// webdriver.NewRemote.
type Server struct {
	*httptest.Server

	doc    *htmlpage.Document
	legacy bool
	pages  map[string]string

	mu       sync.Mutex
	sessions map[string]bool
	nextID   int
	elements map[string]*htmlpage.Element
	ids      map[*html.Node]string
	url      string
	clicks   []string
	requests []string
}

// Option configures a Server.
type Option func(*Server)

// Legacy makes the server speak the JSON Wire dialect.
func Legacy() Option {
	return func(s *Server) { s.legacy = true }
}

// WithPages sets the documents served on navigation, keyed by URL.
func WithPages(pages map[string]string) Option {
	return func(s *Server) { s.pages = pages }
}

// New starts a server over doc. Close it when done.
func New(doc *htmlpage.Document, opts ...Option) *Server {
	s := &Server{
		doc:      doc,
		sessions: make(map[string]bool),
		elements: make(map[string]*htmlpage.Element),
		ids:      make(map[*html.Node]string),
		url:      "about:blank",
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("POST /session", s.newSession)
	mux.HandleFunc("DELETE /session/{sid}", s.session(s.deleteSession))
	mux.HandleFunc("GET /session/{sid}/url", s.session(s.currentURL))
	mux.HandleFunc("POST /session/{sid}/url", s.session(s.navigate))
	mux.HandleFunc("GET /session/{sid}/title", s.session(s.title))
	mux.HandleFunc("GET /session/{sid}/source", s.session(s.source))
	mux.HandleFunc("POST /session/{sid}/element", s.session(s.findOne))
	mux.HandleFunc("POST /session/{sid}/elements", s.session(s.findAll))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/element", s.session(s.findOne))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/elements", s.session(s.findAll))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/{prop}", s.session(s.elementProperty))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/attribute/{name}", s.session(s.attribute))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/{action}", s.session(s.elementAction))
	mux.HandleFunc("POST /session/{sid}/execute", s.session(s.execute))
	mux.HandleFunc("POST /session/{sid}/execute/sync", s.session(s.execute))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, "", http.StatusNotFound, "unknown command", r.Method+" "+r.URL.Path)
	})

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	return s
}

// Requests returns every "METHOD path" served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Clicks returns the paths of clicked elements, in order.
func (s *Server) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}

// Sessions returns how many sessions are open.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) reply(w http.ResponseWriter, sid string, value interface{}) {
	body := map[string]interface{}{"value": value}
	if s.legacy {
		body["sessionId"] = sid
		body["status"] = 0
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(body)
}

var legacyStatus = map[string]int{
	"invalid session id":      6,
	"no such element":         7,
	"unknown command":         9,
	"stale element reference": 10,
	"javascript error":        17,
	"invalid selector":        32,
	"invalid argument":        13,
}

func (s *Server) fail(w http.ResponseWriter, sid string, code int, errCode, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	var body map[string]interface{}
	if s.legacy {
		code = http.StatusInternalServerError
		body = map[string]interface{}{
			"sessionId": sid,
			"status":    legacyStatus[errCode],
			"value":     map[string]string{"message": msg},
		}
	} else {
		body = map[string]interface{}{
			"value": map[string]string{"error": errCode, "message": msg, "stacktrace": ""},
		}
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) failErr(w http.ResponseWriter, sid string, err error) {
	if errors.Is(err, locate.ErrStale) {
		s.fail(w, sid, http.StatusNotFound, "stale element reference", err.Error())
		return
	}
	s.fail(w, sid, http.StatusBadRequest, "invalid selector", err.Error())
}

type handler func(w http.ResponseWriter, r *http.Request, sid string)

func (s *Server) session(h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := r.PathValue("sid")
		s.mu.Lock()
		ok := s.sessions[sid]
		s.mu.Unlock()
		if !ok {
			s.fail(w, sid, http.StatusNotFound, "invalid session id", "no session "+sid)
			return
		}
		h(w, r, sid)
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.reply(w, "", map[string]interface{}{"ready": true, "message": "fakewd ready"})
}

func (s *Server) newSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Capabilities struct {
			AlwaysMatch map[string]interface{} `json:"alwaysMatch"`
		} `json:"capabilities"`
		Desired map[string]interface{} `json:"desiredCapabilities"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "", http.StatusBadRequest, "invalid argument", err.Error())
		return
	}

	s.mu.Lock()
	s.nextID++
	sid := "session-" + strconv.Itoa(s.nextID)
	s.sessions[sid] = true
	s.mu.Unlock()

	if s.legacy {
		s.reply(w, sid, req.Desired)
		return
	}
	s.reply(w, sid, map[string]interface{}{"sessionId": sid, "capabilities": req.Capabilities.AlwaysMatch})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request, sid string) {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
	s.reply(w, sid, nil)
}

func (s *Server) currentURL(w http.ResponseWriter, r *http.Request, sid string) {
	s.mu.Lock()
	u := s.url
	s.mu.Unlock()
	s.reply(w, sid, u)
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, sid string) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, sid, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	src, ok := s.pages[req.URL]
	if !ok {
		s.fail(w, sid, http.StatusNotFound, "unknown error", "no page for "+req.URL)
		return
	}
	if err := s.doc.Load(strings.NewReader(src)); err != nil {
		s.fail(w, sid, http.StatusInternalServerError, "unknown error", err.Error())
		return
	}
	s.mu.Lock()
	s.url = req.URL
	s.mu.Unlock()
	s.reply(w, sid, nil)
}

func (s *Server) title(w http.ResponseWriter, r *http.Request, sid string) {
	s.reply(w, sid, s.doc.Title())
}

func (s *Server) source(w http.ResponseWriter, r *http.Request, sid string) {
	s.reply(w, sid, s.doc.HTML())
}

// locator maps a wire strategy to a locate.Locator. W3C ends do not accept
// the id and name strategies.
func (s *Server) locator(using, value string) (locate.Locator, bool) {
	switch using {
	case "css selector":
		return locate.Locator{Kind: locate.KindCSS, Expr: value}, true
	case "xpath":
		return locate.Locator{Kind: locate.KindXPath, Expr: value}, true
	case "tag name":
		return locate.Locator{Kind: locate.KindCSS, Expr: value}, true
	case "id":
		return locate.Locator{Kind: locate.KindID, Expr: value}, s.legacy
	case "name":
		return locate.Locator{Kind: locate.KindName, Expr: value}, s.legacy
	}
	return locate.Locator{}, false
}

func (s *Server) find(w http.ResponseWriter, r *http.Request, sid string) ([]*htmlpage.Element, bool) {
	var req struct {
		Using string `json:"using"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, sid, http.StatusBadRequest, "invalid argument", err.Error())
		return nil, false
	}
	loc, ok := s.locator(req.Using, req.Value)
	if !ok {
		s.fail(w, sid, http.StatusBadRequest, "invalid argument", "unsupported locator strategy "+req.Using)
		return nil, false
	}

	var (
		els []*htmlpage.Element
		err error
	)
	if eid := r.PathValue("eid"); eid != "" {
		from, ok := s.element(w, sid, eid)
		if !ok {
			return nil, false
		}
		els, err = s.doc.FindFrom(from, loc)
	} else {
		els, err = s.doc.Find(loc)
	}
	if err != nil {
		s.failErr(w, sid, err)
		return nil, false
	}
	return els, true
}

func (s *Server) ref(el *htmlpage.Element) map[string]string {
	s.mu.Lock()
	id, ok := s.ids[el.Node()]
	if !ok {
		s.nextID++
		id = "el-" + strconv.Itoa(s.nextID)
		s.ids[el.Node()] = id
		s.elements[id] = el
	}
	s.mu.Unlock()

	if s.legacy {
		return map[string]string{legacyElementKey: id}
	}
	return map[string]string{w3cElementKey: id}
}

func (s *Server) findOne(w http.ResponseWriter, r *http.Request, sid string) {
	els, ok := s.find(w, r, sid)
	if !ok {
		return
	}
	if len(els) == 0 {
		s.fail(w, sid, http.StatusNotFound, "no such element", "no element matches")
		return
	}
	s.reply(w, sid, s.ref(els[0]))
}

func (s *Server) findAll(w http.ResponseWriter, r *http.Request, sid string) {
	els, ok := s.find(w, r, sid)
	if !ok {
		return
	}
	refs := make([]map[string]string, len(els))
	for i, el := range els {
		refs[i] = s.ref(el)
	}
	s.reply(w, sid, refs)
}

func (s *Server) element(w http.ResponseWriter, sid, eid string) (*htmlpage.Element, bool) {
	s.mu.Lock()
	el, ok := s.elements[eid]
	s.mu.Unlock()
	if !ok {
		s.fail(w, sid, http.StatusNotFound, "no such element", "unknown element "+eid)
	}
	return el, ok
}

func (s *Server) elementProperty(w http.ResponseWriter, r *http.Request, sid string) {
	el, ok := s.element(w, sid, r.PathValue("eid"))
	if !ok {
		return
	}
	var (
		v   interface{}
		err error
	)
	switch prop := r.PathValue("prop"); prop {
	case "displayed":
		v, err = el.IsDisplayed()
	case "enabled":
		v, err = el.IsEnabled()
	case "selected":
		v, err = el.IsSelected()
	case "name":
		v, err = el.TagName()
	case "text":
		v, err = el.Text()
	default:
		s.fail(w, sid, http.StatusNotFound, "unknown command", "unknown element property "+prop)
		return
	}
	if err != nil {
		s.failErr(w, sid, err)
		return
	}
	s.reply(w, sid, v)
}

func (s *Server) attribute(w http.ResponseWriter, r *http.Request, sid string) {
	el, ok := s.element(w, sid, r.PathValue("eid"))
	if !ok {
		return
	}
	v, present, err := el.Attr(r.PathValue("name"))
	if err != nil {
		s.failErr(w, sid, err)
		return
	}
	if !present {
		s.reply(w, sid, nil)
		return
	}
	s.reply(w, sid, v)
}

func (s *Server) elementAction(w http.ResponseWriter, r *http.Request, sid string) {
	el, ok := s.element(w, sid, r.PathValue("eid"))
	if !ok {
		return
	}
	var err error
	switch action := r.PathValue("action"); action {
	case "click":
		err = s.click(el)
	case "clear":
		err = el.Clear()
	case "value":
		var req struct {
			Text  *string  `json:"text"`
			Value []string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.fail(w, sid, http.StatusBadRequest, "invalid argument", err.Error())
			return
		}
		text := strings.Join(req.Value, "")
		if !s.legacy {
			if req.Text == nil {
				s.fail(w, sid, http.StatusBadRequest, "invalid argument", "missing text")
				return
			}
			text = *req.Text
		}
		err = el.SendKeys(text)
	default:
		s.fail(w, sid, http.StatusNotFound, "unknown command", "unknown element action "+action)
		return
	}
	if err != nil {
		s.failErr(w, sid, err)
		return
	}
	s.reply(w, sid, nil)
}

func (s *Server) click(el *htmlpage.Element) error {
	if err := el.Click(); err != nil {
		return err
	}
	s.mu.Lock()
	s.clicks = append(s.clicks, el.Path())
	s.mu.Unlock()
	return nil
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, sid string) {
	var req struct {
		Script string        `json:"script"`
		Args   []interface{} `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, sid, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	switch strings.TrimSpace(req.Script) {
	case "return document.readyState":
		s.reply(w, sid, "complete")
	case "return document.title":
		s.reply(w, sid, s.doc.Title())
	default:
		s.fail(w, sid, http.StatusInternalServerError, "javascript error", fmt.Sprintf("unsupported script %q", req.Script))
	}
}
