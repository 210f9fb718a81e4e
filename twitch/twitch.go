// Package twitch reports whether the configured streamer is currently live.
package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/marcus-crane/mediaspyy/config"
	"github.com/marcus-crane/mediaspyy/db"
	"github.com/marcus-crane/mediaspyy/utils"
)

const (
	accessTokenID = "twitch:accesstoken"
	checksumID    = "twitch:checksum"

	DefaultTokenURL   = "https://id.twitch.tv/oauth2/token"
	DefaultAPIBaseURL = "https://api.twitch.tv/helix"
)

var (
	ErrAuthentication = errors.New("failed to authenticate with twitch")
	ErrQuery          = errors.New("failed to query twitch stream status")
)

// Notifier is told about authentication failures, as they usually mean
// the credentials in settings need fixing by hand.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

type streamsResponse struct {
	Data []struct {
		Type string `json:"type"`
	} `json:"data"`
}

// Client caches an app access token between calls. The cached token is
// dropped whenever the client id or secret in settings change.
type Client struct {
	Settings   config.SettingsService
	HTTPClient *http.Client
	TokenURL   string
	APIBaseURL string
	// Tokens is optional. When set the access token survives restarts.
	Tokens   db.Store
	Notifier Notifier

	mu          sync.Mutex
	accessToken string
	checksum    string
	persisted   string
	restored    bool
	// alerted is the checksum of the credentials we last notified about
	alerted string
}

func NewClient(settings config.SettingsService, tokens db.Store) *Client {
	return &Client{
		Settings:   settings,
		HTTPClient: utils.NewHTTPClient(),
		TokenURL:   DefaultTokenURL,
		APIBaseURL: DefaultAPIBaseURL,
		Tokens:     tokens,
	}
}

// Checksum identifies a client id and secret pair without keeping the
// secret around
func Checksum(clientID, clientSecret string) string {
	d := xxhash.New()
	d.WriteString(clientID)
	d.Write([]byte{0})
	d.WriteString(clientSecret)
	return strconv.FormatUint(d.Sum64(), 16)
}

// IsActive returns true when the configured user has a live stream. A query
// failure triggers exactly one reauthentication and retry.
func (c *Client) IsActive(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	settings, err := c.Settings.Get(ctx)
	if err != nil {
		return false, err
	}
	c.restore(ctx)

	sum := Checksum(settings.TwitchClientID, settings.TwitchClientSecret)
	if sum != c.checksum {
		if c.checksum != "" {
			slog.Info("Twitch credentials changed, dropping cached token")
			c.forget(ctx)
		}
		c.accessToken = ""
		c.checksum = sum
	}

	if c.accessToken == "" {
		if err := c.authenticate(ctx, settings); err != nil {
			return false, err
		}
	}

	live, err := c.query(ctx, settings)
	if err != nil {
		slog.Warn("Twitch stream query failed, reauthenticating",
			slog.String("twitch_user", settings.TwitchUser),
			slog.String("error", err.Error()))
		if err := c.authenticate(ctx, settings); err != nil {
			return false, err
		}
		live, err = c.query(ctx, settings)
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrQuery, err)
		}
	}

	c.persist(ctx)
	return live, nil
}

func (c *Client) authenticate(ctx context.Context, settings config.Settings) error {
	cc := clientcredentials.Config{
		ClientID:     settings.TwitchClientID,
		ClientSecret: settings.TwitchClientSecret,
		TokenURL:     c.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	token, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient()))
	if err != nil {
		c.accessToken = ""
		if c.alerted != c.checksum {
			c.notify(ctx, err)
			c.alerted = c.checksum
		}
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	c.accessToken = token.AccessToken
	c.alerted = ""
	slog.Debug("Fetched new Twitch access token")
	return nil
}

func (c *Client) query(ctx context.Context, settings config.Settings) (bool, error) {
	endpoint, err := url.JoinPath(c.APIBaseURL, "streams")
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	q := req.URL.Query()
	q.Set("user_login", settings.TwitchUser)
	req.URL.RawQuery = q.Encode()
	req.Header = http.Header{
		"Accept":        {"application/json"},
		"Authorization": {"Bearer " + c.accessToken},
		"Client-Id":     {settings.TwitchClientID},
	}

	res, err := c.httpClient().Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("helix streams returned status %d", res.StatusCode)
	}

	var streams streamsResponse
	if err := json.NewDecoder(res.Body).Decode(&streams); err != nil {
		return false, fmt.Errorf("failed to decode helix streams: %w", err)
	}
	return len(streams.Data) > 0 && streams.Data[0].Type == "live", nil
}

func (c *Client) restore(ctx context.Context) {
	if c.restored || c.Tokens == nil {
		return
	}
	c.restored = true
	stored, err := c.Tokens.GetMany(ctx, accessTokenID, checksumID)
	if err != nil {
		slog.Warn("Failed to load stored Twitch token", slog.String("error", err.Error()))
		return
	}
	token, sum := string(stored[accessTokenID]), string(stored[checksumID])
	if token == "" || sum == "" {
		return
	}
	c.accessToken, c.checksum, c.persisted = token, sum, token
}

// forget removes a stored token that belongs to credentials no longer in use
func (c *Client) forget(ctx context.Context) {
	c.persisted = ""
	if c.Tokens == nil {
		return
	}
	for _, key := range []string{accessTokenID, checksumID} {
		if err := c.Tokens.Delete(ctx, key); err != nil {
			slog.Warn("Failed to remove stored Twitch token", slog.String("error", err.Error()))
		}
	}
}

// persist failures only cost us a token fetch after the next restart
func (c *Client) persist(ctx context.Context) {
	if c.Tokens == nil || c.accessToken == c.persisted {
		return
	}
	if err := c.Tokens.Set(ctx, accessTokenID, []byte(c.accessToken)); err != nil {
		slog.Warn("Failed to save Twitch token", slog.String("error", err.Error()))
		return
	}
	if err := c.Tokens.Set(ctx, checksumID, []byte(c.checksum)); err != nil {
		slog.Warn("Failed to save Twitch credential checksum", slog.String("error", err.Error()))
		return
	}
	c.persisted = c.accessToken
}

func (c *Client) notify(ctx context.Context, err error) {
	if c.Notifier == nil {
		return
	}
	if nerr := c.Notifier.Notify(ctx, "Twitch authentication failed", err.Error()); nerr != nil {
		slog.Error("Failed to send notification", slog.String("error", nerr.Error()))
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
