package recursor

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

func (r *Resolver) usingUDP() (yes bool) {
	r.mu.RLock()
	yes = r.useUDP
	r.mu.RUnlock()
	return
}

func (r *Resolver) usingIPv6() (yes bool) {
	r.mu.RLock()
	yes = r.useIPv6
	r.mu.RUnlock()
	return
}

// isNoRoute reports whether err means the host lacks a network path to the
// destination, as opposed to the destination misbehaving.
func isNoRoute(err error) bool {
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	errstr := err.Error()
	return strings.Contains(errstr, "network is unreachable") ||
		strings.Contains(errstr, "no route to host")
}

// isUDPUnsupported reports whether err means this host cannot do UDP at all.
// Timeouts never qualify.
func isUDPUnsupported(err error) bool {
	var ne net.Error
	if !errors.As(err, &ne) || ne.Timeout() {
		return false
	}
	return errors.Is(err, syscall.ENOSYS) ||
		errors.Is(err, syscall.EPROTONOSUPPORT) ||
		strings.Contains(err.Error(), "network not implemented")
}

// maybeDisableIPv6 stops offering IPv6 candidates after a dial error that
// indicates the host has no IPv6 route. Root servers reachable only over
// IPv6 are dropped from the hint list.
func (r *Resolver) maybeDisableIPv6(err error) (disabled bool) {
	if err == nil || !isNoRoute(err) {
		return
	}
	r.mu.Lock()
	if r.useIPv6 {
		disabled = true
		r.useIPv6 = false
		kept := r.rootServers[:0]
		for _, addr := range r.rootServers {
			if addr.Is4() {
				kept = append(kept, addr)
			}
		}
		r.rootServers = kept
	}
	r.mu.Unlock()
	if disabled {
		r.log.WithError(err).Warn("disabling IPv6, pruning IPv6 root servers")
	}
	return
}

// maybeDisableUDP switches to TCP-only after an error that indicates UDP is
// unavailable on this host.
func (r *Resolver) maybeDisableUDP(err error) (disabled bool) {
	if err == nil || !isUDPUnsupported(err) {
		return
	}
	r.mu.Lock()
	disabled = r.useUDP
	r.useUDP = false
	r.mu.Unlock()
	if disabled {
		r.log.WithError(err).Warn("disabling UDP, using TCP only")
	}
	return
}
