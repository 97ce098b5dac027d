package credentials

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/connectorhub/internal/connector"
)

// DefaultConsentTimeout bounds how long Interactive waits for the browser.
const DefaultConsentTimeout = 5 * time.Minute

// Interactive runs the OAuth authorization code flow with PKCE against a
// loopback redirect listener.
type Interactive struct {
	Config *oauth2.Config
	// ListenAddr defaults to 127.0.0.1:0 (any free port).
	ListenAddr string
	Timeout    time.Duration
	// Prompt receives the consent URL. Defaults to os.Stderr.
	Prompt io.Writer
	// OpenBrowser is called with the consent URL. Nil only prints it.
	OpenBrowser func(url string) error
	// HTTPClient is used for the code exchange.
	HTTPClient *http.Client
	// ExtraParams are added to the consent URL.
	ExtraParams []oauth2.AuthCodeOption
}

func (a *Interactive) Authorize(ctx context.Context, account string) (*Record, error) {
	if a.Config == nil || a.Config.ClientID == "" {
		return nil, connector.NewAuthenticationError("interactive authorization needs an OAuth client id", nil)
	}

	state := uuid.NewString()
	cb := newCallbackServer(state)
	addr := a.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	if err := cb.start(addr); err != nil {
		return nil, connector.NewAuthenticationError("start redirect listener", err)
	}
	defer cb.stop()

	cfg := *a.Config
	cfg.RedirectURL = cb.redirectURI()
	verifier := oauth2.GenerateVerifier()
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	}
	if strings.Contains(account, "@") {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", account))
	}
	opts = append(opts, a.ExtraParams...)
	authURL := cfg.AuthCodeURL(state, opts...)

	prompt := a.Prompt
	if prompt == nil {
		prompt = os.Stderr
	}
	fmt.Fprintf(prompt, "Authorize %s by visiting:\n\n  %s\n\n", account, authURL)
	if a.OpenBrowser != nil {
		if err := a.OpenBrowser(authURL); err != nil {
			fmt.Fprintf(prompt, "Could not open a browser (%v); open the URL manually.\n", err)
		}
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultConsentTimeout
	}
	code, err := cb.wait(ctx, timeout)
	if err != nil {
		return nil, connector.NewAuthenticationError("authorization was not completed", err)
	}

	exCtx := ctx
	if a.HTTPClient != nil {
		exCtx = context.WithValue(ctx, oauth2.HTTPClient, a.HTTPClient)
	}
	tok, err := cfg.Exchange(exCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		if c := connector.Classify(err); connector.IsTransient(c) {
			return nil, c
		}
		return nil, connector.NewAuthenticationError("exchange authorization code", err)
	}
	return RecordFromToken(account, tok, cfg.Scopes), nil
}

// callbackServer receives the single redirect of an authorization attempt.
type callbackServer struct {
	mu       sync.Mutex
	state    string
	codeCh   chan string
	errCh    chan error
	server   *http.Server
	listener net.Listener
}

func newCallbackServer(state string) *callbackServer {
	return &callbackServer{
		state:  state,
		codeCh: make(chan string, 1),
		errCh:  make(chan error, 1),
	}
}

func (s *callbackServer) start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handle)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.fail(err)
		}
	}()
	return nil
}

func (s *callbackServer) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

func (s *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if e := q.Get("error"); e != "" {
		s.fail(fmt.Errorf("authorization denied: %s %s", e, q.Get("error_description")))
		fmt.Fprint(w, callbackPage("Authorization failed", html.EscapeString(q.Get("error_description"))))
		return
	}
	if q.Get("state") != s.state {
		s.fail(errors.New("state mismatch in authorization callback"))
		fmt.Fprint(w, callbackPage("Authorization failed", "Invalid state parameter."))
		return
	}
	code := q.Get("code")
	if code == "" {
		s.fail(errors.New("authorization callback carried no code"))
		fmt.Fprint(w, callbackPage("Authorization failed", "No authorization code received."))
		return
	}
	select {
	case s.codeCh <- code:
	default:
	}
	fmt.Fprint(w, callbackPage("Authorization successful", "You can close this window."))
}

func (s *callbackServer) wait(ctx context.Context, timeout time.Duration) (string, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case code := <-s.codeCh:
		return code, nil
	case err := <-s.errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
		return "", fmt.Errorf("no authorization callback within %s", timeout)
	}
}

func (s *callbackServer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}

func (s *callbackServer) redirectURI() string {
	port := 0
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return fmt.Sprintf("http://127.0.0.1:%d/callback", port)
}

func callbackPage(title, message string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>connectorhub</title></head>
<body style="font-family:sans-serif;text-align:center;margin-top:15vh">
<h1>%s</h1><p>%s</p>
</body></html>`, html.EscapeString(title), message)
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
