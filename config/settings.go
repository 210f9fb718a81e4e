package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/marcus-crane/mediaspyy/db"
)

// Settings are the user facing options, editable at runtime. They are never
// cached: every storage or liveness decision loads them again so a change
// applies on the very next call.
type Settings struct {
	HistoryEntries     int    `json:"historyEntries"`
	UseExternal        bool   `json:"useExternal"`
	ServerURL          string `json:"serverUrl"`
	ServerUser         string `json:"serverUser"`
	ServerPassword     string `json:"serverPassword"`
	QueryOnlineStatus  bool   `json:"queryOnlineStatus"`
	TwitchUser         string `json:"twitchUser"`
	TwitchClientID     string `json:"twitchClientId"`
	TwitchClientSecret string `json:"twitchClientSecret"`
}

func DefaultSettings() Settings {
	return Settings{
		HistoryEntries: 3,
		ServerURL:      "http://localhost:8080/",
		ServerUser:     "foo",
		ServerPassword: "bar",
	}
}

type SettingsService interface {
	Get(ctx context.Context) (Settings, error)
	Set(ctx context.Context, s Settings) error
}

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidSetting = errors.New("invalid setting")
)

const settingsKeyPrefix = "config:"

// KVSettings stores each setting under its own key so that fields can be
// changed independently. Keys that were never written fall back to Defaults.
type KVSettings struct {
	Store    db.Store
	Defaults Settings
}

func NewKVSettings(store db.Store) *KVSettings {
	return &KVSettings{
		Store:    store,
		Defaults: DefaultSettings(),
	}
}

func (k *KVSettings) Get(ctx context.Context) (Settings, error) {
	fields, err := toFields(k.Defaults)
	if err != nil {
		return Settings{}, err
	}
	keys := make([]string, 0, len(fields))
	for name := range fields {
		keys = append(keys, settingsKeyPrefix+name)
	}
	sort.Strings(keys)

	stored, err := k.Store.GetMany(ctx, keys...)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	for name := range fields {
		if raw, ok := stored[settingsKeyPrefix+name]; ok {
			fields[name] = raw
		}
	}
	return fromFields(fields)
}

func (k *KVSettings) Set(ctx context.Context, s Settings) error {
	fields, err := toFields(s)
	if err != nil {
		return err
	}
	return k.write(ctx, fields)
}

// Update applies a partial set of settings keyed by their JSON names and
// returns the result. Nothing is written if any name or value is invalid.
func (k *KVSettings) Update(ctx context.Context, patch map[string]json.RawMessage) (Settings, error) {
	current, err := k.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	fields, err := toFields(current)
	if err != nil {
		return Settings{}, err
	}
	for name, raw := range patch {
		if _, ok := fields[name]; !ok {
			return Settings{}, fmt.Errorf("%w: %s", ErrUnknownSetting, name)
		}
		fields[name] = raw
	}
	updated, err := fromFields(fields)
	if err != nil {
		return Settings{}, err
	}
	if err := k.write(ctx, patch); err != nil {
		return Settings{}, err
	}
	return updated, nil
}

func (k *KVSettings) write(ctx context.Context, fields map[string]json.RawMessage) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := k.Store.Set(ctx, settingsKeyPrefix+name, fields[name]); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", name, err)
		}
	}
	return nil
}

func toFields(s Settings) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func fromFields(fields map[string]json.RawMessage) (Settings, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}
	return s, nil
}
