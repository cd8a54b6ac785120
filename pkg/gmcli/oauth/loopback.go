package oauth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	successPage = "<html><body><h1>Authentication successful!</h1><p>You can close this window.</p></body></html>"
	failurePage = "<html><body><h1>Authentication failed</h1><p>Return to the terminal for details.</p></body></html>"
)

// callbackListener is a one-shot loopback listener used as the OAuth
// redirect target. It accepts a single connection and is closed after it.
type callbackListener struct {
	ln        net.Listener
	closeOnce sync.Once
	closeErr  error
}

// listenLoopback binds an OS-assigned port on the loopback interface.
func listenLoopback() (*callbackListener, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "binding loopback listener")
	}
	return &callbackListener{ln: ln}, nil
}

func (l *callbackListener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// Close releases the socket. Safe to call more than once.
func (l *callbackListener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.ln.Close()
	})
	return l.closeErr
}

// Await blocks until one callback connection arrives, validates its state
// against expectedState and returns the authorization code. The listener is
// closed before Await returns. Cancelling ctx unblocks the accept.
func (l *callbackListener) Await(ctx context.Context, expectedState string) (string, error) {
	defer l.Close()
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	log.Infof("Waiting for OAuth callback on port %d...", l.Port())
	conn, err := l.ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Wrap(err, "accepting callback connection")
	}
	defer conn.Close()

	code, err := readCallback(conn, expectedState)
	if err != nil {
		writePage(conn, http.StatusBadRequest, failurePage)
		return "", err
	}
	writePage(conn, http.StatusOK, successPage)
	return code, nil
}

// readCallback parses the request line of the redirect and extracts the
// authorization code. The state is checked before the code is looked at.
func readCallback(r io.Reader, expectedState string) (string, error) {
	tp := textproto.NewReader(bufio.NewReader(r))
	line, err := tp.ReadLine()
	if err != nil {
		return "", errors.Wrap(err, "reading callback request")
	}
	// Consume the header block so the connection closes cleanly.
	_, _ = tp.ReadMIMEHeader()

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", errors.Errorf("malformed callback request %q", line)
	}
	target, err := url.ParseRequestURI(fields[1])
	if err != nil {
		return "", errors.Wrapf(err, "parsing callback target %q", fields[1])
	}

	q := target.Query()
	if q.Get("state") != expectedState {
		return "", ErrCSRFMismatch
	}
	if reason := q.Get("error"); reason != "" {
		return "", errors.Errorf("authorization denied: %s", reason)
	}
	code := q.Get("code")
	if code == "" {
		return "", ErrMissingCode
	}
	return code, nil
}

func writePage(w io.Writer, status int, body string) {
	fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, http.StatusText(status), len(body), body)
}
