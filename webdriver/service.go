package webdriver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/wanmail/locate"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service) error

// Display specifies the value to which set the DISPLAY environment variable,
// as well as the path to the Xauthority file containing credentials needed to
// write to that X server.
func Display(d, xauthPath string) ServiceOption {
	return func(s *Service) error {
		if s.display != "" {
			return fmt.Errorf("service display already set: %v", s.display)
		}
		if !isDisplay(d) {
			return fmt.Errorf("supplied display %q must be of the format 'x' or 'x.y' where x and y are integers", d)
		}
		s.display = d
		s.xauthPath = xauthPath
		return nil
	}
}

// isDisplay validates that the given disp is in the format "x" or "x.y", where
// x and y are both integers.
func isDisplay(disp string) bool {
	ds := strings.Split(disp, ".")
	if len(ds) > 2 {
		return false
	}
	for _, d := range ds {
		if _, err := strconv.Atoi(d); err != nil {
			return false
		}
	}
	return true
}

// Output specifies that the driver process should write its output to w
// instead of the package logger.
func Output(w io.Writer) ServiceOption {
	return func(s *Service) error {
		s.output = w
		return nil
	}
}

// StartTimeout bounds how long the service may take to answer /status.
func StartTimeout(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d <= 0 {
			return fmt.Errorf("start timeout must be positive, got %v", d)
		}
		s.startTimeout = d
		return nil
	}
}

// Service controls a locally-running driver subprocess.
type Service struct {
	port            int
	addr            string
	cmd             *exec.Cmd
	shutdownURLPath string
	startTimeout    time.Duration

	display, xauthPath string

	output io.Writer
	exited chan error
}

// URL is the prefix to pass to NewRemote.
func (s *Service) URL() string { return s.addr }

// NewChromeDriverService starts a ChromeDriver instance in the background. A
// zero port picks a free one.
func NewChromeDriverService(ctx context.Context, path string, port int, opts ...ServiceOption) (*Service, error) {
	port, err := pickPort(port)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(path, "--port="+strconv.Itoa(port), "--url-base=wd/hub")
	s, err := newService(cmd, "/wd/hub", port, opts...)
	if err != nil {
		return nil, err
	}
	s.shutdownURLPath = "/shutdown"
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewGeckoDriverService starts a GeckoDriver instance in the background. A
// zero port picks a free one.
func NewGeckoDriverService(ctx context.Context, path string, port int, opts ...ServiceOption) (*Service, error) {
	port, err := pickPort(port)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(path, "--port", strconv.Itoa(port))
	s, err := newService(cmd, "", port, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func pickPort(port int) (int, error) {
	if port != 0 {
		return port, nil
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding a free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func newService(cmd *exec.Cmd, urlPrefix string, port int, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		port:         port,
		addr:         fmt.Sprintf("http://127.0.0.1:%d%s", port, urlPrefix),
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.output == nil {
		s.output = &zapio.Writer{Log: logger.Load().With(zap.String("driver", cmd.Path)), Level: zapcore.DebugLevel}
	}
	cmd.Stderr = s.output
	cmd.Stdout = s.output
	cmd.Env = os.Environ()
	if s.display != "" {
		cmd.Env = append(cmd.Env, "DISPLAY=:"+s.display)
	}
	if s.xauthPath != "" {
		cmd.Env = append(cmd.Env, "XAUTHORITY="+s.xauthPath)
	}
	s.cmd = cmd
	return s, nil
}

func (s *Service) start(ctx context.Context) error {
	if err := s.cmd.Start(); err != nil {
		return err
	}
	exited := make(chan error, 1)
	go func() { exited <- s.cmd.Wait() }()

	ready := func() (bool, error) {
		select {
		case err := <-exited:
			exited <- err
			return false, fmt.Errorf("driver exited before serving: %v", err)
		default:
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.addr+"/status", nil)
		if err != nil {
			return false, err
		}
		resp, err := GetHTTPClient().Do(req)
		if err != nil {
			return false, nil
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK, nil
	}
	if err := poll(ctx, ready, s.startTimeout, 50*time.Millisecond); err != nil {
		s.cmd.Process.Kill()
		<-exited
		if errors.Is(err, locate.ErrTimeout) {
			return fmt.Errorf("driver did not respond on port %d within %v", s.port, s.startTimeout)
		}
		return err
	}
	// Stop collects the result of the Wait started above.
	s.exited = exited
	debugLog("driver started", zap.String("path", s.cmd.Path), zap.String("url", s.addr))
	return nil
}

// Stop shuts down the driver. A driver without a shutdown endpoint, or
// one that ignores it, is killed.
func (s *Service) Stop() error {
	if s.shutdownURLPath != "" {
		if resp, err := GetHTTPClient().Get(s.addr + s.shutdownURLPath); err == nil {
			resp.Body.Close()
			select {
			case err := <-s.exited:
				return exitErr(err)
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return exitErr(<-s.exited)
}

func exitErr(err error) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) && !ee.Exited() {
		// Killed by a signal.
		return nil
	}
	return err
}
