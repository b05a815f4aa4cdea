package domain

// ThreadState is the lifecycle state of a ticket thread view.
type ThreadState string

const (
	ThreadLoading     ThreadState = "loading"
	ThreadReadyOpen   ThreadState = "ready_open"
	ThreadReadySolved ThreadState = "ready_solved"
	ThreadNotFound    ThreadState = "not_found"
)

// IsReady reports whether the view finished loading a ticket.
func (s ThreadState) IsReady() bool {
	return s == ThreadReadyOpen || s == ThreadReadySolved
}

// Navigation targets shared by the session guard and the views.
const (
	PathLogin        = "/login"
	PathLoginExpired = "/login?expired=true"
	PathDashboard    = "/dashboard"
)

// ExpiredSessionMessage is shown by the login surface for PathLoginExpired.
const ExpiredSessionMessage = "Your session has expired. Please log in again."
