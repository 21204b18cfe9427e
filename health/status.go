package health

import (
	"regexp"
	"strings"
	"time"
)

// State is the coarse health of a check or of the whole service.
type State string

// Health states, ordered from best to worst.
const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

var (
	dsnRegex        = regexp.MustCompile(`postgres(ql)?://[^\s"]+`)
	httpURLRegex    = regexp.MustCompile(`https?://[^\s"]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|api_key|token|secret)\s*[:=]\s*[^\s&,}]+`)
)

// Status reports one check, or the aggregate of several.
type Status struct {
	Name      string        `json:"name"`
	State     State         `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ns,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
	Checks    []Status      `json:"checks,omitempty"`
}

// Healthy reports whether s is in the healthy state.
func (s Status) Healthy() bool {
	return s.State == StateHealthy
}

// FromError builds the status of a finished check. The error message is
// sanitized before it is exposed.
func FromError(name string, err error, latency time.Duration) Status {
	st := Status{
		Name:      name,
		State:     StateHealthy,
		Latency:   latency,
		CheckedAt: time.Now(),
	}
	if err != nil {
		st.State = StateUnhealthy
		st.Message = sanitize(err.Error())
	}
	return st
}

// Aggregate combines checks into one status: unhealthy if any check is
// unhealthy, else degraded if any is degraded, else healthy.
func Aggregate(name string, checks []Status) Status {
	st := Status{
		Name:      name,
		State:     StateHealthy,
		CheckedAt: time.Now(),
		Checks:    append([]Status(nil), checks...),
	}
	for _, c := range checks {
		switch c.State {
		case StateUnhealthy:
			st.State = StateUnhealthy
		case StateDegraded:
			if st.State == StateHealthy {
				st.State = StateDegraded
			}
		}
	}
	return st
}

// sanitize strips connection strings, addresses and credentials from an
// error message.
func sanitize(msg string) string {
	if msg == "" {
		return ""
	}
	out := dsnRegex.ReplaceAllString(msg, "[DSN]")
	out = httpURLRegex.ReplaceAllString(out, "[URL]")
	out = ipAddrRegex.ReplaceAllString(out, "[IP]")
	out = portRegex.ReplaceAllString(out, "[PORT]")

	lower := strings.ToLower(out)
	if strings.Contains(lower, "password") || strings.Contains(lower, "api_key") ||
		strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
		out = credentialRegex.ReplaceAllString(out, "[REDACTED]")
	}
	return out
}
