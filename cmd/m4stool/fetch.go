package main

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/spf13/pflag"

	"github.com/zsiec/adsplice/internal/segment"
	"github.com/zsiec/adsplice/pkg/version"
)

// Edge response headers printed by fetch.
var edgeHeaders = []string{"X-Ad-Decision", "X-Fragment-Sequence", "X-Request-ID", "Alt-Svc"}

func runFetch(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	useH3 := flags.Bool("h3", false, "use HTTP/3")
	insecure := flags.BoolP("insecure", "k", false, "skip TLS certificate verification")
	client := flags.String("client", "", "client address sent as X-Forwarded-For")
	timeout := flags.Duration("timeout", 10*time.Second, "request timeout")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("usage: m4stool fetch [--h3] [--client ip] <url>")
	}
	url := flags.Arg(0)

	tlsConfig := &tls.Config{InsecureSkipVerify: *insecure}
	httpClient := &http.Client{Timeout: *timeout}
	if *useH3 {
		rt := &http3.RoundTripper{TLSClientConfig: tlsConfig}
		defer rt.Close()
		httpClient.Transport = rt
	} else {
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())
	if *client != "" {
		req.Header.Set("X-Forwarded-For", *client)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	fmt.Fprintf(stdout, "Status:   %s\n", resp.Status)
	fmt.Fprintf(stdout, "Protocol: %s\n", resp.Proto)
	for _, h := range edgeHeaders {
		if v := resp.Header.Get(h); v != "" {
			fmt.Fprintf(stdout, "%s: %s\n", h, v)
		}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	res := inspection{File: req.URL.Path, Size: len(body)}
	report, err := segment.Inspect(body)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Report = report
	}
	fmt.Fprintln(stdout, renderReports([]inspection{res}))
	if res.Error != "" {
		return fmt.Errorf("response is not a valid segment: %s", res.Error)
	}
	return nil
}
