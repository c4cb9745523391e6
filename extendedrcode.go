package recursor

import (
	"context"
	"errors"
	"io"
	"net"
	"os"

	"github.com/miekg/dns"
)

// extendedErrorCode maps the error that stopped a descent to an RFC 8914
// Extended DNS Error code for the synthesized SERVFAIL.
func extendedErrorCode(err error) uint16 {
	switch {
	case err == nil:
		return dns.ExtendedErrorCodeOther
	case errors.Is(err, errDepthExceeded):
		// Safety stop, not a protocol condition.
		return dns.ExtendedErrorCodeNoReachableAuthority
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return dns.ExtendedErrorCodeNoReachableAuthority
	case errors.Is(err, errNoUsableAddress):
		return dns.ExtendedErrorCodeNoReachableAuthority
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrShortBuffer):
		return dns.ExtendedErrorCodeInvalidData
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return dns.ExtendedErrorCodeNetworkError
	case errors.Is(err, os.ErrPermission):
		return dns.ExtendedErrorCodeProhibited
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsTimeout, dnsErr.IsNotFound:
			return dns.ExtendedErrorCodeNoReachableAuthority
		case dnsErr.IsTemporary:
			return dns.ExtendedErrorCodeNotReady
		default:
			return dns.ExtendedErrorCodeNetworkError
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return dns.ExtendedErrorCodeNoReachableAuthority
		}
		return dns.ExtendedErrorCodeNetworkError
	}
	return dns.ExtendedErrorCodeOther
}
