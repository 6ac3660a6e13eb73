// Package fetch builds the outbound HTTP clients every adapter shares.
// All clients carry a descriptive user-agent, a bounded timeout and the
// safeurl guard as a before-request middleware, so a URL that slips in
// through pagination still cannot reach a private address.
package fetch

import (
	"context"
	"fmt"
	"time"

	"onon-backend/lib/restyutil"
	"onon-backend/lib/safeurl"
	"onon-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const DefaultUserAgent = "onon-backend/1.0 (hash event aggregator; contact: trailmaster@onon.example)"
const DefaultTimeout = time.Second * 30

var debugOutput restyutil.InstrumentOutput

// SetDebugOutput turns on request/response capture for every client
// built afterwards. Meant for one-off debugging runs from the CLI.
func SetDebugOutput(output restyutil.InstrumentOutput) {
	debugOutput = output
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	// some listing sites sit behind cloudflare's browser check
	CloudflareBypass bool
	TracerName       string
}

func NewClient(opts Options) *resty.Client {
	client := resty.New()

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	client.SetHeader("user-agent", ua)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)

	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return safeurl.Validate(req.URL)
	})

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "fetch/http"
	}
	telemetry.InstrumentResty(client, tracerName)
	restyutil.DumpClient(client, debugOutput)

	return client
}

// Get fetches a single URL and reports a non-2xx status as an error,
// since every adapter treats those identically. The returned status is
// valid whenever the response made it back at all.
func Get(ctx context.Context, client *resty.Client, url string) (body []byte, status int, err error) {
	res, err := client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, 0, err
	}
	if res.IsError() {
		return res.Body(), res.StatusCode(), fmt.Errorf("unexpected status %d", res.StatusCode())
	}
	return res.Body(), res.StatusCode(), nil
}
