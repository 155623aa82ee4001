/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/carverauto/tuptime/pkg/models"
)

const maxBodyDrainBytes = 4 << 10

var errUnexpectedStatusCode = errors.New("unexpected status code")

// HTTPProber fetches one candidate URL per check. When the target names no
// scheme the secure candidate is tried first, and the insecure one only
// after a TLS negotiation failure; any other network error is final.
type HTTPProber struct {
	urls   []string
	client *http.Client
}

func newHTTPProber(svc models.ServiceConfig) *HTTPProber {
	// Redirect statuses count as answered, so redirects are not followed.
	//nolint:gosec // Allow insecure TLS, availability is checked rather than trust
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &HTTPProber{
		urls:   candidateURLs(svc),
		client: client,
	}
}

func (h *HTTPProber) Check(ctx context.Context) error {
	err := h.fetch(ctx, h.urls[0])
	if err == nil || len(h.urls) == 1 || !isTLSNegotiationError(err) {
		return err
	}

	return h.fetch(ctx, h.urls[1])
}

func (h *HTTPProber) fetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrainBytes))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: %d from %s", errUnexpectedStatusCode, resp.StatusCode, url)
	}

	return nil
}

// candidateURLs builds the attempt order for a service. An explicit scheme
// in the target is respected verbatim; otherwise both transports are
// candidates, secure first.
func candidateURLs(svc models.ServiceConfig) []string {
	if strings.Contains(svc.Target, "://") {
		return []string{svc.Target}
	}

	hostport := svc.Target
	if svc.Port > 0 {
		hostport = net.JoinHostPort(svc.Target, strconv.Itoa(svc.Port))
	}

	path := svc.Location
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return []string{
		"https://" + hostport + path,
		"http://" + hostport + path,
	}
}

// isTLSNegotiationError reports whether the https attempt failed during
// the TLS exchange itself, which is the only failure that justifies
// retrying over plain http.
func isTLSNegotiationError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}

	var alertErr tls.AlertError

	return errors.As(err, &alertErr)
}
