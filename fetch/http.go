package fetch

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// maxBody bounds how much of an upstream response is read into memory.
const maxBody = 8 << 20

// HTTPKey derives the cache key used for a GET of url.
func HTTPKey(url string) string {
	return http.MethodGet + " " + url
}

// HTTPLoader returns a LoadFunc that GETs url with client and yields the
// response body. Server errors and 429 are retryable; any other non-2xx
// status fails permanently with a *StatusError.
func HTTPLoader(client *http.Client, url string) LoadFunc[[]byte] {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, Permanent(errors.Wrap(err, "fetch: build request"))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch %s", url)
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
			serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, serr
			}
			return nil, Permanent(serr)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return nil, errors.Wrapf(err, "fetch %s: read body", url)
		}
		return body, nil
	}
}
