package terminal

import (
	"io"
	"net/url"
	"sync"

	"github.com/lorrc/devexchange/internal/core/domain"
	"github.com/lorrc/devexchange/internal/core/ports"
)

var _ ports.Navigator = (*Navigator)(nil)

// Navigator stands in for page navigation. It reports moves and lets the
// running command react to them, e.g. stop when sent to the login page.
type Navigator struct {
	out io.Writer

	mu      sync.Mutex
	current string
	onLogin func(expired bool)
}

func NewNavigator(out io.Writer) *Navigator {
	return &Navigator{out: out}
}

// OnLogin registers fn to run when navigation reaches the login page.
func (n *Navigator) OnLogin(fn func(expired bool)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onLogin = fn
}

func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.current = path
	onLogin := n.onLogin
	n.mu.Unlock()

	u, err := url.Parse(path)
	if err != nil || u.Path != domain.PathLogin {
		mutedColor.Fprintf(n.out, "→ %s\n", path)
		return
	}

	expired := u.Query().Get("expired") == "true"
	if expired {
		errorColor.Fprintln(n.out, domain.ExpiredSessionMessage)
	} else {
		mutedColor.Fprintln(n.out, "Signed out.")
	}
	if onLogin != nil {
		onLogin(expired)
	}
}

// Current returns the last navigation target.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}
