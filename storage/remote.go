package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/media"
	"github.com/marcus-crane/mediaspyy/utils"
)

const mediaEndpoint = "media"

// Remote mirrors history to a mediaspyy server over HTTP using Basic auth.
// The server address and credentials are read from Settings on every call.
// Failures are returned as-is, there is no local fallback.
type Remote struct {
	Settings   config.SettingsService
	HTTPClient *http.Client
}

func NewRemote(settings config.SettingsService) *Remote {
	return &Remote{
		Settings:   settings,
		HTTPClient: utils.NewHTTPClient(),
	}
}

func (rs *Remote) Push(ctx context.Context, r media.Record) (media.Record, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return r, err
	}
	res, err := rs.do(ctx, http.MethodPost, nil, bytes.NewReader(body))
	if err != nil {
		return r, err
	}
	defer res.Body.Close()

	var stored media.Record
	if err := json.NewDecoder(res.Body).Decode(&stored); err != nil {
		if errors.Is(err, io.EOF) {
			// Server accepted it but didn't echo anything back
			return r, nil
		}
		return r, fmt.Errorf("failed to decode stored media: %w", err)
	}
	return stored, nil
}

func (rs *Remote) Peek(ctx context.Context) (*media.Record, error) {
	records, err := rs.Last(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (rs *Remote) Last(ctx context.Context, n int) ([]media.Record, error) {
	n = clamp(n)
	query := url.Values{"size": {strconv.Itoa(n)}}
	res, err := rs.do(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var records []media.Record
	if err := json.NewDecoder(res.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode media history: %w", err)
	}
	// The server answers oldest first
	return newestFirst(records, n), nil
}

func (rs *Remote) Delete(ctx context.Context, id string) error {
	res, err := rs.do(ctx, http.MethodDelete, nil, nil, id)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return err
	}
	res.Body.Close()
	return nil
}

// do sends an authenticated request to the media endpoint and only hands
// back responses with a 2xx status. The caller must close the body.
func (rs *Remote) do(ctx context.Context, method string, query url.Values, body io.Reader, elem ...string) (*http.Response, error) {
	settings, err := rs.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	endpoint, err := url.JoinPath(settings.ServerURL, append([]string{mediaEndpoint}, elem...)...)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", settings.ServerURL, err)
	}
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header = http.Header{
		"Accept":       []string{"application/json"},
		"Content-Type": []string{"application/json"},
	}
	req.SetBasicAuth(settings.ServerUser, settings.ServerPassword)

	res, err := rs.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to contact media server: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
		return nil, &StatusError{Method: method, URL: endpoint, StatusCode: res.StatusCode}
	}
	return res, nil
}
