// Package scrapertest serves canned pages to adapters under test
// without opening a listener, which the outbound SSRF guard would
// refuse to talk to anyway.
package scrapertest

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

type Response struct {
	Status int
	Body   string
	// transport-level failure instead of a response
	Err error
}

// Transport is a RoundTripper answering from a URL-keyed map. Unknown
// URLs get a 404 so a test that follows an unexpected link fails loudly
// instead of hanging.
type Transport struct {
	mu        sync.Mutex
	Responses map[string]Response
	// Match, when set, is consulted before the URL map. API tests use
	// it to answer by query parameter where the path alone is ambiguous.
	Match func(req *http.Request) (Response, bool)
	// every URL the adapter requested, in order
	Requested []string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	t.Requested = append(t.Requested, req.URL.String())
	t.mu.Unlock()

	if t.Match != nil {
		if res, ok := t.Match(req); ok {
			if res.Err != nil {
				return nil, res.Err
			}
			status := res.Status
			if status == 0 {
				status = 200
			}
			return httpResponse(req, status, res.Body), nil
		}
	}

	t.mu.Lock()
	res, ok := t.Responses[req.URL.String()]
	t.mu.Unlock()

	if !ok {
		// fall back to path-only keys so query-heavy API tests stay readable
		t.mu.Lock()
		res, ok = t.Responses[req.URL.Path]
		t.mu.Unlock()
	}
	if !ok {
		return httpResponse(req, 404, "not found"), nil
	}
	if res.Err != nil {
		return nil, res.Err
	}
	status := res.Status
	if status == 0 {
		status = 200
	}
	return httpResponse(req, status, res.Body), nil
}

func httpResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode: status,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// Client wraps a Transport in a resty client the adapter accepts as its
// override.
func Client(t *Transport) *resty.Client {
	client := resty.New()
	client.SetTransport(t)
	return client
}
