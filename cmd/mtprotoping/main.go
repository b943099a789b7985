package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mivmi/snakegram/client"
	"github.com/mivmi/snakegram/internal/envutil"
	"github.com/mivmi/snakegram/mtconfig"
	"github.com/mivmi/snakegram/mtcrypto"
	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/sessionstore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	showVersion := false

	addr := envutil.EnvString("MTPROTOPING_ADDR", "149.154.167.50:443")
	dc, dcErr := envutil.EnvInt("MTPROTOPING_DC", 2)
	rsaKeyFile := envutil.EnvString("MTPROTOPING_RSA_KEY_FILE", "")
	timeoutS, timeoutErr := envutil.EnvInt("MTPROTOPING_TIMEOUT_SECONDS", 15)
	debug, debugErr := envutil.EnvBool("MTPROTOPING_DEBUG", false)
	if envErr := errors.Join(dcErr, timeoutErr, debugErr); envErr != nil {
		fmt.Fprintln(stderr, envErr)
		return 2
	}

	fs := flag.NewFlagSet("mtprotoping", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&addr, "addr", addr, "data center address host:port (env: MTPROTOPING_ADDR)")
	fs.IntVar(&dc, "dc", dc, "data center id of --addr, passed to the client as its DC (env: MTPROTOPING_DC)")
	fs.StringVar(&rsaKeyFile, "rsa-key-file", rsaKeyFile, "PEM file of RSA public keys the handshake may select from (required) (env: MTPROTOPING_RSA_KEY_FILE)")
	fs.IntVar(&timeoutS, "timeout-seconds", timeoutS, "deadline for connect + one getState call (env: MTPROTOPING_TIMEOUT_SECONDS)")
	fs.BoolVar(&debug, "debug", debug, "enable verbose protocol logging (env: MTPROTOPING_DEBUG)")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintln(out, "Usage:")
		fmt.Fprintln(out, "  mtprotoping --rsa-key-file <keys.pem> [flags]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Performs a handshake against a data center, issues one getState call,")
		fmt.Fprintln(out, "and reports the round trip latency - a connectivity smoke test, not a")
		fmt.Fprintln(out, "general-purpose CLI client.")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Exit codes:")
		fmt.Fprintln(out, "  0: success")
		fmt.Fprintln(out, "  2: usage error (bad flags/missing required)")
		fmt.Fprintln(out, "  1: runtime error")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Flags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		fmt.Fprintln(stdout, "mtprotoping dev")
		return 0
	}

	addr = strings.TrimSpace(addr)
	rsaKeyFile = strings.TrimSpace(rsaKeyFile)
	if addr == "" {
		return usageErr(fs, stderr, "missing --addr")
	}
	if rsaKeyFile == "" {
		return usageErr(fs, stderr, "missing --rsa-key-file")
	}
	if timeoutS <= 0 {
		return usageErr(fs, stderr, "--timeout-seconds must be > 0")
	}

	pem, err := os.ReadFile(rsaKeyFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	keys := mtcrypto.NewRegistry()
	if err := keys.Add(pem); err != nil {
		fmt.Fprintln(stderr, fmt.Errorf("parse %s: %w", rsaKeyFile, err))
		return 1
	}

	log := observability.Discard
	if debug {
		log = observability.NewLogger("mtprotoping", true)
	}

	c, err := client.New(client.Options{
		Addr:   addr,
		Keys:   keys,
		Store:  sessionstore.NewMemoryStore(),
		Config: mtconfig.Default(),
		Logger: log,
		DC:     int32(dc),
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutS)*time.Second)
	defer cancel()

	start := time.Now()
	if err := c.Connect(ctx); err != nil {
		fmt.Fprintln(stderr, fmt.Errorf("connect: %w", err))
		return 1
	}
	defer c.Disconnect()

	st, err := client.InvokeAs[*schema.State](ctx, c, &schema.GetState{})
	if err != nil {
		fmt.Fprintln(stderr, fmt.Errorf("getState: %w", err))
		return 1
	}

	fmt.Fprintf(stdout, "connected to %s in %s\n", addr, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(stdout, "pts=%d qts=%d date=%d seq=%d unread=%d\n", st.Pts, st.Qts, st.Date, st.Seq, st.UnreadCount)
	return 0
}

func usageErr(fs *flag.FlagSet, stderr io.Writer, msg string) int {
	fmt.Fprintln(stderr, msg)
	fs.Usage()
	return 2
}
