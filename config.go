package recursor

import (
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// EDNSConfig describes the OPT pseudo-record attached to every outgoing
// query. A nil EDNSConfig on Config disables EDNS entirely.
type EDNSConfig struct {
	Version     uint8       // EDNS version, 0 for EDNS0
	PayloadSize uint16      // advertised UDP payload size, 0 means DefaultPayloadSize
	DNSSECOK    bool        // set the DO bit
	Options     []dns.EDNS0 // additional EDNS options, passed through verbatim
}

// TSIGConfig holds a transaction signature key applied to every outgoing
// query. Algorithm defaults to hmac-sha256 when empty.
type TSIGConfig struct {
	KeyName   string // fully qualified key name
	Algorithm string // dns.HmacSHA256 et al
	Secret    string // base64 encoded shared secret
}

// Config is the immutable resolver configuration. The zero value is usable;
// it queries port 53 over UDP with TCP fallback on truncation.
type Config struct {
	Port             uint16             // nameserver port, 0 means 53
	TCP              bool               // use TCP for all queries
	IgnoreTruncation bool               // return truncated UDP responses instead of retrying over TCP
	EDNS             *EDNSConfig        // nil disables EDNS
	TSIG             *TSIGConfig        // nil disables transaction signatures
	Cache            Cacher             // nil means a private cache.New()
	Logger           logrus.FieldLogger // nil discards all logging
}

const DefaultPayloadSize = 1232

func (cfg *Config) port() uint16 {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return 53
}

func (cfg *Config) payloadSize() uint16 {
	if cfg.EDNS != nil && cfg.EDNS.PayloadSize != 0 {
		return cfg.EDNS.PayloadSize
	}
	return DefaultPayloadSize
}

func (cfg *Config) tsigAlgorithm() string {
	if cfg.TSIG != nil && cfg.TSIG.Algorithm != "" {
		return dns.Fqdn(cfg.TSIG.Algorithm)
	}
	return dns.HmacSHA256
}
