/*
Package transport implements the HTTP exchange with the migasfree
server. Endpoints under /safe/ carry payloads wrapped by the secure
package (signed with the client key, encrypted with the server key);
endpoints under /public/ carry plain JSON. Transient network failures
are retried with exponential backoff.
*/
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/jpillora/backoff"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"

	"github.com/migasfree/migasfree-client/secure"
)

const requestAttempts = 3

// Keys names the PEM files used to wrap and unwrap safe payloads: the
// client-side private key signs requests and decrypts responses, the
// server public key encrypts requests and verifies responses.
type Keys struct {
	Private string
	Public  string
}

// Options configures a Request.
type Options struct {
	// Server is the "host" or "host:port" of the migasfree server.
	Server string

	// Proxy, when set, routes every exchange through an HTTP proxy.
	Proxy string

	// CertFile points at the pinned server TLS certificate; when
	// empty the client speaks plain HTTP.
	CertFile string

	// MTLSCert and MTLSKey enable mutual TLS when both are set.
	MTLSCert string
	MTLSKey  string

	Keys Keys

	Debug bool
}

// Request is a client for one migasfree server.
type Request struct {
	opts   Options
	client *http.Client
	pooled bool
}

// New builds a Request from opts. Call Close when done to return the
// pooled HTTP client.
func New(opts Options) (*Request, error) {
	r := &Request{opts: opts}

	if opts.CertFile == "" && opts.Proxy == "" {
		r.client = utility.GetHTTPClient()
		r.pooled = true
		return r, nil
	}

	transport := &http.Transport{}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid proxy '%s'", opts.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if opts.CertFile != "" {
		pemData, err := os.ReadFile(opts.CertFile)
		if err != nil {
			return nil, errors.Wrapf(err, "reading server certificate '%s'", opts.CertFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, errors.Errorf("no certificates in '%s'", opts.CertFile)
		}

		tlsConf := &tls.Config{RootCAs: pool}
		if opts.MTLSCert != "" && opts.MTLSKey != "" {
			cert, err := tls.LoadX509KeyPair(opts.MTLSCert, opts.MTLSKey)
			if err != nil {
				return nil, errors.Wrap(err, "loading mTLS client certificate")
			}
			tlsConf.Certificates = []tls.Certificate{cert}
		}
		transport.TLSClientConfig = tlsConf
	}

	r.client = &http.Client{Transport: transport, Timeout: 5 * time.Minute}

	return r, nil
}

// Close returns the pooled HTTP client, if any.
func (r *Request) Close() {
	if r.pooled {
		utility.PutHTTPClient(r.client)
		r.client = nil
	}
}

// WithKeys returns a shallow copy of the Request using a different
// key pair, sharing the underlying HTTP client. Pool ownership moves
// to the copy, so closing the copy returns the client. Used by
// packager operations, which sign with the packager key.
func (r *Request) WithKeys(keys Keys) *Request {
	copied := *r
	copied.opts.Keys = keys
	r.pooled = false

	return &copied
}

// Protocol reports the URL scheme in use.
func (r *Request) Protocol() string {
	if r.opts.CertFile != "" {
		return "https"
	}

	return "http"
}

// BaseURL returns the scheme and authority of every endpoint.
func (r *Request) BaseURL() string {
	return fmt.Sprintf("%s://%s", r.Protocol(), r.opts.Server)
}

// URL joins an endpoint path onto the base URL.
func (r *Request) URL(path string) string {
	return r.BaseURL() + path
}

// PostPublic exchanges plain JSON with a public endpoint. A nil data
// posts an empty object; a nil out discards the response payload.
func (r *Request) PostPublic(ctx context.Context, path string, data, out interface{}) error {
	if data == nil {
		data = struct{}{}
	}

	body, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshaling request")
	}

	raw, err := r.do(ctx, path, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL(path), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	return decodePayload(raw, out)
}

// DownloadPublic posts plain JSON to a public endpoint and returns
// the raw response body, for endpoints that answer with file content.
func (r *Request) DownloadPublic(ctx context.Context, path string, data interface{}) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request")
	}

	return r.do(ctx, path, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL(path), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// Post exchanges a wrapped payload with a safe endpoint.
func (r *Request) Post(ctx context.Context, path string, data, out interface{}) error {
	return r.Upload(ctx, path, data, nil, out)
}

// Upload exchanges a wrapped payload with a safe endpoint, attaching
// the named files as multipart "package" parts.
func (r *Request) Upload(ctx context.Context, path string, data interface{}, files []string, out interface{}) error {
	token, err := secure.Wrap(data, r.opts.Keys.Private, r.opts.Keys.Public)
	if err != nil {
		return errors.Wrap(err, "wrapping request payload")
	}

	raw, err := r.do(ctx, path, func() (*http.Request, error) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)

		part, err := writer.CreateFormFile("message", "message.jwe")
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(part, token); err != nil {
			return nil, err
		}

		for _, file := range files {
			if err := attachFile(writer, "package", file); err != nil {
				return nil, err
			}
		}

		if err := writer.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL(path), bytes.NewReader(body.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return err
	}

	var payload json.RawMessage
	if err := secure.Unwrap(string(raw), r.opts.Keys.Private, r.opts.Keys.Public, &payload); err != nil {
		return errors.Wrap(err, "unwrapping response payload")
	}

	return decodePayload(payload, out)
}

func attachFile(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening '%s'", path)
	}
	defer file.Close()

	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = io.Copy(part, file)

	return errors.Wrapf(err, "copying '%s'", path)
}

// do runs the request built by build, retrying network failures, and
// returns the response body. HTTP statuses >= 400 become ServerError
// values and are not retried.
func (r *Request) do(ctx context.Context, path string, build func() (*http.Request, error)) ([]byte, error) {
	retry := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= requestAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, errors.Wrap(err, "building request")
		}

		grip.DebugWhen(r.opts.Debug, message.Fields{
			"message": "request",
			"url":     req.URL.String(),
			"attempt": attempt,
		})

		resp, err := r.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, errors.WithStack(ctx.Err())
			}

			select {
			case <-time.After(retry.Duration()):
			case <-ctx.Done():
				return nil, errors.WithStack(ctx.Err())
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading response from '%s'", path)
		}

		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &ServerError{Code: resp.StatusCode, Info: snippet(body)}
		}

		return body, nil
	}

	return nil, errors.Wrapf(lastErr, "requesting '%s' after %d attempts", path, requestAttempts)
}

// decodePayload surfaces an application-level error object if the
// payload carries one, otherwise unmarshals it into out.
func decodePayload(raw []byte, out interface{}) error {
	var probe struct {
		Error *ServerError `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.Error != nil && probe.Error.Code != CodeOK {
		return probe.Error
	}

	if out == nil {
		return nil
	}

	return errors.Wrap(json.Unmarshal(raw, out), "unmarshaling response")
}

func snippet(body []byte) string {
	const max = 512
	if len(body) > max {
		body = body[:max]
	}

	return string(body)
}
