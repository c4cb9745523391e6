// Command recursor resolves a name iteratively from the root servers and
// prints the final response.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wnagele/recursor"
)

var (
	flagPort       uint16
	flagTCP        bool
	flagIgnoreTC   bool
	flagEDNS       bool
	flagPayload    uint16
	flagDO         bool
	flagVerbose    bool
	flagOrderRoots bool
)

var rootCmd = &cobra.Command{
	Use:          "recursor name [type]",
	Short:        "Resolve a DNS name iteratively starting at the root servers",
	Args:         cobra.RangeArgs(1, 2),
	RunE:         run,
	SilenceUsage: true,
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg := recursor.Config{
		Port:             flagPort,
		TCP:              flagTCP,
		IgnoreTruncation: flagIgnoreTC,
		Logger:           log,
	}
	if flagEDNS {
		cfg.EDNS = &recursor.EDNSConfig{
			PayloadSize: flagPayload,
			DNSSECOK:    flagDO,
		}
	}
	r, err := recursor.New(cfg)
	if err != nil {
		return err
	}
	if flagOrderRoots {
		r.OrderRoots(cmd.Context(), 100*time.Millisecond)
	}

	qtype := dns.TypeA
	if len(args) == 2 {
		t, ok := dns.StringToType[strings.ToUpper(args[1])]
		if !ok {
			return fmt.Errorf("unknown record type %q", args[1])
		}
		qtype = t
	}
	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(strings.ToLower(args[0])), qtype)
	query.RecursionDesired = false

	msg, err := r.Send(cmd.Context(), query)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func main() {
	rootCmd.Flags().Uint16Var(&flagPort, "port", 0, "nameserver port (default 53)")
	rootCmd.Flags().BoolVar(&flagTCP, "tcp", false, "use TCP for all queries")
	rootCmd.Flags().BoolVar(&flagIgnoreTC, "ignore-truncation", false, "accept truncated UDP responses")
	rootCmd.Flags().BoolVar(&flagEDNS, "edns", false, "attach an EDNS0 OPT record to queries")
	rootCmd.Flags().Uint16Var(&flagPayload, "payload", 0, "EDNS payload size (default 1232)")
	rootCmd.Flags().BoolVar(&flagDO, "do", false, "set the EDNS DO bit")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log each resolution step")
	rootCmd.Flags().BoolVar(&flagOrderRoots, "order-roots", false, "probe and order root servers by latency first")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
