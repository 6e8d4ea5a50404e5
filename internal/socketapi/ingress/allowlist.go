// Package ingress implements the broadcast ingress: an HTTP loopback
// endpoint plus optional cross-process relays that let another process
// (or another node) trigger a Broadcast on this one without holding a
// session.
package ingress

import "net"

// AllowList is a host allow-list for the HTTP ingress endpoint: only the
// operator-configured peers may post, or loopback when none are configured.
type AllowList struct {
	hosts map[string]struct{}
}

// NewAllowList builds an allow-list from the given hosts. An empty list
// defaults to loopback only, a safe default rather than an open-by-default
// allow-list.
func NewAllowList(hosts []string) *AllowList {
	if len(hosts) == 0 {
		hosts = []string{"127.0.0.1", "::1", "localhost"}
	}
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[h] = struct{}{}
	}
	return &AllowList{hosts: set}
}

// Allowed reports whether addr (a RemoteAddr-shaped "host:port" or a bare
// host) is permitted to post to the ingress.
func (a *AllowList) Allowed(addr string) bool {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	_, ok := a.hosts[host]
	return ok
}
