package domain

import (
	"net"
	"strings"
	"time"
)

// EventKind classifies a login event.
type EventKind string

const (
	EventLoginSuccess  EventKind = "login_success"
	EventLoginFailed   EventKind = "login_failed"
	EventPasswordReset EventKind = "password_reset"
)

// LoginEvent is one append-only record in the analytics log. Network and
// DeviceFamily are coarse buckets derived at append time so aggregate
// queries never touch the raw address or descriptor.
type LoginEvent struct {
	ID           string            `json:"id,omitempty"`
	AccountID    string            `json:"account_id"`
	Kind         EventKind         `json:"kind"`
	IP           string            `json:"ip"`
	Network      string            `json:"network"`
	Device       string            `json:"device"`
	DeviceFamily string            `json:"device_family"`
	RiskScore    int               `json:"risk_score"`
	Suspicious   bool              `json:"suspicious"`
	Detail       map[string]string `json:"detail,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RiskAssessment is the scorer's verdict on a single sign-in.
type RiskAssessment struct {
	Score      int      `json:"score"`
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons,omitempty"`
}

// MaskNetwork reduces an address to a coarse network bucket: /24 for IPv4,
// /64 for IPv6. Port suffixes are stripped; unparseable input maps to
// "unknown" rather than leaking the raw string into aggregates.
func MaskNetwork(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "unknown"
	}
	if v4 := ip.To4(); v4 != nil {
		mask := net.CIDRMask(24, 32)
		return (&net.IPNet{IP: v4.Mask(mask), Mask: mask}).String()
	}
	mask := net.CIDRMask(64, 128)
	return (&net.IPNet{IP: ip.Mask(mask), Mask: mask}).String()
}

// DeviceFamily buckets a client descriptor into a coarse device class used
// for analytics grouping.
func DeviceFamily(descriptor string) string {
	d := strings.ToLower(descriptor)
	switch {
	case d == "":
		return "unknown"
	case strings.Contains(d, "iphone"), strings.Contains(d, "android"), strings.Contains(d, "mobile"):
		return "mobile"
	case strings.Contains(d, "ipad"), strings.Contains(d, "tablet"):
		return "tablet"
	case strings.Contains(d, "windows"), strings.Contains(d, "macintosh"), strings.Contains(d, "x11"), strings.Contains(d, "linux"):
		return "desktop"
	case strings.Contains(d, "curl"), strings.Contains(d, "postman"), strings.Contains(d, "httpie"):
		return "api_client"
	}
	return "other"
}
