package devserver

import (
	"fmt"
	"net"
	"strconv"

	"github.com/iDestin/rsbuild/internal/errors"
)

// URL is one externally reachable address of the dev server.
type URL struct {
	// Label is "Local" for loopback or "Network" for LAN addresses.
	Label string

	// URL is the full address, e.g. "http://localhost:3000".
	URL string
}

// PrintURLsFunc lets the caller replace or filter the URL list before it is
// printed. Returning a nil list with a nil error is a programming error.
type PrintURLsFunc func(urls []string) ([]string, error)

// wildcardHost reports whether host binds all addresses.
func wildcardHost(host string) bool {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		return true
	}
	return false
}

// loopbackHost reports whether host is loopback-equivalent.
func loopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	}
	return false
}

// ComputeURLs returns the set of reachable URLs for the resolved server
// address. Local comes first; Network entries follow in interface
// enumeration order, which is not significant across platforms.
func ComputeURLs(protocol string, port int, host string) []URL {
	// JoinHostPort brackets IPv6 hosts.
	format := func(h string) string {
		return fmt.Sprintf("%s://%s", protocol, net.JoinHostPort(h, strconv.Itoa(port)))
	}

	switch {
	case loopbackHost(host):
		return []URL{{Label: "Local", URL: format("localhost")}}
	case !wildcardHost(host):
		// Bound to one specific address; loopback is not reachable.
		return []URL{{Label: "Network", URL: format(host)}}
	}

	urls := []URL{{Label: "Local", URL: format("localhost")}}
	for _, addr := range networkAddrs() {
		urls = append(urls, URL{Label: "Network", URL: format(addr)})
	}
	return urls
}

// networkAddrs enumerates non-loopback IPv4 addresses of up interfaces.
func networkAddrs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var addrs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range ifaceAddrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			addrs = append(addrs, ip.String())
		}
	}
	return addrs
}

// Strings flattens a URL list for printing and transforms.
func Strings(urls []URL) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = u.URL
	}
	return out
}

// ApplyPrintTransform runs the caller's URL transform, rejecting results
// that are not a list.
func ApplyPrintTransform(urls []string, fn PrintURLsFunc) ([]string, error) {
	if fn == nil {
		return urls, nil
	}
	out, err := fn(urls)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New(errors.CodeInvalidPrintURLs)
	}
	return out, nil
}
