package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fingram/internal/core"
)

// rest is the shared HTTP plumbing of the cookie and bearer clients. It owns
// the base URL, the path prefix that distinguishes the two backend surfaces,
// and the error mapping: 401 becomes core.ErrUnauthorized, any other non-2xx
// surfaces the response body verbatim.
type rest struct {
	baseURL string
	prefix  string
	client  *http.Client
	// authorize decorates each request with the credential, if any.
	authorize func(*http.Request)
}

func newREST(baseURL, prefix string, client *http.Client, authorize func(*http.Request)) rest {
	if client == nil {
		client = http.DefaultClient
	}
	if authorize == nil {
		authorize = func(*http.Request) {}
	}
	return rest{
		baseURL:   strings.TrimRight(baseURL, "/"),
		prefix:    prefix,
		client:    client,
		authorize: authorize,
	}
}

func (r rest) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := r.baseURL + r.prefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return r.do(req, out)
}

func (r rest) postJSON(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+r.prefix+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return r.do(req, out)
}

func (r rest) do(req *http.Request, out any) error {
	r.authorize(req)
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return core.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(text))
		if msg == "" {
			msg = fmt.Sprintf("error %d", resp.StatusCode)
		}
		return fmt.Errorf("%s", msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func transactionQuery(params TransactionParams) url.Values {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Year > 0 && params.Month > 0 {
		q.Set("year", strconv.Itoa(params.Year))
		q.Set("month", strconv.Itoa(params.Month))
	}
	if params.CategoryID != "" {
		q.Set("categoryId", params.CategoryID)
	}
	if params.Description != "" {
		q.Set("description", params.Description)
	}
	return q
}

func summaryQuery(year, month int) url.Values {
	q := url.Values{}
	if year > 0 && month > 0 {
		q.Set("year", strconv.Itoa(year))
		q.Set("month", strconv.Itoa(month))
	}
	return q
}
