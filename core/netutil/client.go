package netutil

import (
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes NewClient. Zero values select the defaults.
type ClientOptions struct {
	Timeout       time.Duration
	DialTimeout   time.Duration
	HeaderTimeout time.Duration
	Retries       int
	Backoff       time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.HeaderTimeout <= 0 {
		o.HeaderTimeout = 5 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// NewClient returns an http.Client whose transport retries transient dial
// errors and timeouts. Long polls need Timeout above the poll interval.
func NewClient(opts ClientOptions) *http.Client {
	opts = opts.withDefaults()
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.DialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: opts.HeaderTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: &retryTransport{next: base, retries: opts.Retries, backoff: opts.Backoff},
	}
}

type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && Transient(err); attempt++ {
		// A consumed body can only be replayed through GetBody.
		if req.Body != nil && req.GetBody == nil {
			break
		}
		if sleepErr := Sleep(req.Context(), Backoff(t.backoff, attempt)); sleepErr != nil {
			return nil, sleepErr
		}
		retry := req.Clone(req.Context())
		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			retry.Body = body
		}
		resp, err = t.next.RoundTrip(retry)
	}
	return resp, err
}
