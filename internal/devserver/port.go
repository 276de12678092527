package devserver

import (
	"net"
	"strconv"

	"github.com/iDestin/rsbuild/internal/errors"
)

// maxPortScan bounds the non-strict fallback search: at most this many
// ports above the requested one are probed before giving up.
const maxPortScan = 100

// PortOptions controls port resolution.
type PortOptions struct {
	// Strict fails instead of falling back when the requested port is busy.
	Strict bool

	// Silent suppresses the advisory notice on fallback.
	Silent bool

	// Host is the bind host used for probing (empty probes all addresses).
	Host string

	// Notify receives the advisory when a fallback port is chosen.
	Notify func(requested, chosen int)
}

// PortAllocation is the outcome of port resolution: the chosen port and
// whether it was re-negotiated away from the requested one. It is recomputed
// on every start attempt and never persisted.
type PortAllocation struct {
	Port     int
	Fallback bool
}

// ResolvePort finds a listening port for the dev server. The probe is only
// advisory: another process can claim the port between probing and binding,
// so the bind step downstream stays authoritative and must fail cleanly
// rather than assume the probed port is still free.
func ResolvePort(requested int, opts PortOptions) (PortAllocation, error) {
	if portFree(opts.Host, requested) {
		return PortAllocation{Port: requested}, nil
	}

	if opts.Strict {
		return PortAllocation{}, errors.New(errors.CodePortUnavailable).
			WithDetailf("Port %d is in use and strictPort is enabled", requested).
			WithSuggestion("Stop the process using the port or disable server.strictPort")
	}

	for offset := 1; offset <= maxPortScan; offset++ {
		candidate := requested + offset
		if candidate > 65535 {
			break
		}
		if portFree(opts.Host, candidate) {
			if !opts.Silent && opts.Notify != nil {
				opts.Notify(requested, candidate)
			}
			return PortAllocation{Port: candidate, Fallback: true}, nil
		}
	}

	return PortAllocation{}, errors.New(errors.CodePortExhaustion).
		WithDetailf("No free port found in range %d-%d", requested, requested+maxPortScan)
}

// portFree probes whether the port can currently be bound on the host.
func portFree(host string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
