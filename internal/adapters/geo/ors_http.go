package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type httpStatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ors status %d: %s", e.Code, e.Body)
}

// postJSON sends in as the request body and decodes the answer into out,
// retrying transient failures.
func (o *ORS) postJSON(ctx context.Context, endpoint string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}

	resp, err := o.send(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (o *ORS) send(ctx context.Context, endpoint string, payload []byte) (*http.Response, error) {
	wait := o.backoff
	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := o.sendOnce(ctx, endpoint, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		delay, ok := retryDelay(err, wait)
		if !ok || attempt == o.maxAttempts {
			return nil, lastErr
		}
		log.WithFields(log.Fields{
			"endpoint": endpoint,
			"attempt":  attempt,
			"delay":    delay,
		}).WithError(err).Debug("ors: retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
	return nil, lastErr
}

func (o *ORS) sendOnce(ctx context.Context, endpoint string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}

	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	se := &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		se.RetryAfter = time.Duration(secs) * time.Second
	}
	return nil, se
}

// retryDelay reports whether err is transient and how long to wait before
// the next attempt. A Retry-After header wins over the backoff.
func retryDelay(err error, backoff time.Duration) (time.Duration, bool) {
	var se *httpStatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if se.RetryAfter > 0 {
				return se.RetryAfter, true
			}
			return backoff, true
		}
		return 0, false
	}
	var netErr net.Error
	return backoff, errors.As(err, &netErr)
}
