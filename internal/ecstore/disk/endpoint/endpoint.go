// Package endpoint parses, validates, and classifies disk endpoints:
// either a local absolute path or an http(s)://host:port/path remote
// reference, grounded on original_source/mojofs/ecstore/disk/endpoint.py
// and the teacher's own cmd/endpoint.go shape (Endpoint wrapping
// *url.URL, IsLocal, EndpointType).
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
)

// Type classifies an Endpoint as a local path or a remote URL.
type Type int

const (
	// PathType is a local filesystem path endpoint.
	PathType Type = iota + 1
	// URLType is an http(s) remote endpoint.
	URLType
)

// Endpoint is any type of disk endpoint, plus its locality and its
// position within the cluster geometry.
type Endpoint struct {
	URL     *url.URL
	IsLocal bool

	PoolIdx int
	SetIdx  int
	DiskIdx int
}

func isEmptyPath(p string) bool {
	return p == "" || p == "." || p == "/" || p == `\`
}

// New parses value into an Endpoint, applying every validation rule in
// spec.md §4.A. pool/set/disk indexes default to -1.
func New(value string) (Endpoint, error) {
	if value == "" || value == "/" || value == `\` {
		return Endpoint{}, fmt.Errorf("empty or root endpoint is not supported")
	}

	ep := Endpoint{PoolIdx: -1, SetIdx: -1, DiskIdx: -1}

	u, err := url.Parse(value)
	if err == nil && u.Scheme != "" && u.Host != "" {
		if u.Scheme != "http" && u.Scheme != "https" {
			return Endpoint{}, fmt.Errorf("invalid URL endpoint format")
		}
		if u.User != nil || u.Fragment != "" || u.RawQuery != "" {
			return Endpoint{}, fmt.Errorf("invalid URL endpoint format")
		}

		host, port, splitErr := net.SplitHostPort(u.Host)
		if splitErr != nil {
			// no port present
			host = u.Host
		} else if port != "" {
			p, convErr := strconv.Atoi(port)
			if convErr != nil || p < 1 || p > 65535 {
				return Endpoint{}, fmt.Errorf("invalid URL endpoint format: port number must be between 1 to 65535")
			}
		}
		if host == "" {
			return Endpoint{}, fmt.Errorf("invalid URL endpoint format: empty host name")
		}

		u.Path = path.Clean(u.Path)
		if isEmptyPath(u.Path) {
			return Endpoint{}, fmt.Errorf("empty or root path is not supported in URL endpoint")
		}

		ep.URL = u
		ep.IsLocal = false
		return ep, nil
	}

	// Local path style. Reject a bare "host:port" with no scheme, the
	// classic "missing scheme http or https" mistake.
	if host, _, splitErr := net.SplitHostPort(firstSegment(value)); splitErr == nil && host != "" {
		if looksLikeHostPort(firstSegment(value)) {
			return Endpoint{}, fmt.Errorf("invalid URL endpoint format: missing scheme http or https")
		}
	}

	abs, err := filepath.Abs(value)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid URL endpoint format: %s", err)
	}

	ep.URL = &url.URL{Scheme: "file", Path: abs}
	ep.IsLocal = true
	return ep, nil
}

// firstSegment returns the portion of value up to the first '/'.
func firstSegment(value string) string {
	for i, r := range value {
		if r == '/' {
			return value[:i]
		}
	}
	return value
}

// looksLikeHostPort reports whether addr is a bare "host:port" (a
// numeric port, no scheme) — the canonical user mistake of omitting
// http:// in front of an address.
func looksLikeHostPort(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" || port == "" {
		return false
	}
	if _, err := strconv.Atoi(port); err != nil {
		return false
	}
	return true
}

// Type returns the classification of ep.
func (ep Endpoint) Type() Type {
	if ep.URL != nil && ep.URL.Scheme == "file" {
		return PathType
	}
	return URLType
}

// String renders ep back to its canonical textual form.
func (ep Endpoint) String() string {
	if ep.URL == nil {
		return ""
	}
	if ep.URL.Scheme == "file" {
		return ep.URL.Path
	}
	return ep.URL.String()
}

// GridHost returns "scheme://host[:port]", or "" for path endpoints.
func (ep Endpoint) GridHost() string {
	if ep.URL == nil || ep.URL.Hostname() == "" {
		return ""
	}
	if port := ep.URL.Port(); port != "" {
		return fmt.Sprintf("%s://%s:%s", ep.URL.Scheme, ep.URL.Hostname(), port)
	}
	return fmt.Sprintf("%s://%s", ep.URL.Scheme, ep.URL.Hostname())
}

// HostPort returns "host[:port]", or "" for path endpoints.
func (ep Endpoint) HostPort() string {
	if ep.URL == nil || ep.URL.Hostname() == "" {
		return ""
	}
	if port := ep.URL.Port(); port != "" {
		return net.JoinHostPort(ep.URL.Hostname(), port)
	}
	return ep.URL.Hostname()
}

// FilePath returns the filesystem path component of ep, valid for both
// path and URL endpoints.
func (ep Endpoint) FilePath() string {
	if ep.URL == nil {
		return ""
	}
	return ep.URL.Path
}

// SetPoolIndex sets the pool coordinate.
func (ep *Endpoint) SetPoolIndex(idx int) { ep.PoolIdx = idx }

// SetSetIndex sets the set coordinate.
func (ep *Endpoint) SetSetIndex(idx int) { ep.SetIdx = idx }

// SetDiskIndex sets the disk coordinate.
func (ep *Endpoint) SetDiskIndex(idx int) { ep.DiskIdx = idx }

// UpdateIsLocal recomputes IsLocal for a URL endpoint by comparing its
// host against this process's local addresses and listening port.
func (ep *Endpoint) UpdateIsLocal(localPort int, localIPs func(host string) bool) {
	if ep.URL == nil || ep.URL.Scheme == "file" || ep.URL.Hostname() == "" {
		return
	}
	local := localIPs(ep.URL.Hostname())
	if local && ep.URL.Port() != "" {
		p, err := strconv.Atoi(ep.URL.Port())
		local = err == nil && p == localPort
	}
	ep.IsLocal = local
}

// Clone returns a deep-enough copy of ep safe for independent mutation
// of the pool/set/disk coordinates.
func (ep Endpoint) Clone() Endpoint {
	clone := ep
	if ep.URL != nil {
		u := *ep.URL
		clone.URL = &u
	}
	return clone
}

// Equal reports whether two endpoints denote the same disk.
func Equal(a, b Endpoint) bool {
	if (a.URL == nil) != (b.URL == nil) {
		return false
	}
	if a.URL != nil && a.URL.String() != b.URL.String() {
		return false
	}
	return a.IsLocal == b.IsLocal && a.PoolIdx == b.PoolIdx && a.SetIdx == b.SetIdx && a.DiskIdx == b.DiskIdx
}
