package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// LDAP performs a simple bind as the user to verify their password.
type LDAP struct {
	// URL of the directory server, e.g. "ldap://directory.internal:389".
	URL string

	// UserDNTemplate receives the escaped username, e.g.
	// "uid=%s,ou=users,dc=example,dc=com".
	UserDNTemplate string

	// Timeout for dialing and binding. Zero means 5 seconds.
	Timeout time.Duration

	Logger *slog.Logger
}

// Bind dials the directory and attempts a simple bind with the user's DN.
// Fails closed: connectivity problems and bad credentials are both reported
// as false.
func (l *LDAP) Bind(ctx context.Context, username, password string) bool {
	// An empty password would be an unauthenticated bind, which most
	// directories accept. Never let that count as a login.
	if username == "" || password == "" {
		return false
	}

	timeout := l.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	conn, err := ldap.DialURL(l.URL, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		l.Logger.Warn("directory unreachable", "err", err)
		return false
	}
	defer conn.Close()
	conn.SetTimeout(timeout)

	dn := fmt.Sprintf(l.UserDNTemplate, ldap.EscapeDN(username))
	if err := conn.Bind(dn, password); err != nil {
		return false
	}
	return true
}
