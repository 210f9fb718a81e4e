package media

import (
	"errors"
	"fmt"
)

type PlaybackState string

const (
	StateNone    PlaybackState = "none"
	StatePaused  PlaybackState = "paused"
	StatePlaying PlaybackState = "playing"
)

func (s PlaybackState) Valid() bool {
	switch s {
	case StateNone, StatePaused, StatePlaying:
		return true
	}
	return false
}

// LocationGeneric is the location type attached by the page poller. It's
// just the URL of the tab that reported the media session.
const LocationGeneric = "generic"

type Location struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type Image struct {
	Src  string `json:"src"`
	Size string `json:"size,omitempty"`
	Type string `json:"type,omitempty"`
}

// Record is a single snapshot of whatever a tab was playing when it was polled.
// A new poll always produces a new Record, nothing updates one in place.
//
// ID is assigned by whichever backend stored the record and plays no part in
// deciding whether two snapshots are the same, see Equal.
type Record struct {
	ID            string        `json:"id,omitempty"`
	Locations     []Location    `json:"locations"`
	Title         string        `json:"title"`
	Artist        string        `json:"artist"`
	Images        []Image       `json:"images"`
	PlaybackState PlaybackState `json:"playbackState"`
	Album         string        `json:"album,omitempty"`
}

var (
	ErrNoLocations   = errors.New("record must have at least one location")
	ErrEmptyLocation = errors.New("record location has no url")
)

func (r Record) Validate() error {
	if len(r.Locations) == 0 {
		return ErrNoLocations
	}
	for _, l := range r.Locations {
		if l.URL == "" {
			return ErrEmptyLocation
		}
	}
	if !r.PlaybackState.Valid() {
		return fmt.Errorf("unknown playback state %q", r.PlaybackState)
	}
	return nil
}

// URL returns the first location of the given type, if there is one
func (r Record) URL(locationType string) (string, bool) {
	for _, l := range r.Locations {
		if l.Type == locationType {
			return l.URL, true
		}
	}
	return "", false
}

// Equal reports whether two records describe the same playback snapshot.
// Every field except ID is compared and list order matters, so the same
// artwork reported in a different order counts as a change.
func Equal(a, b Record) bool {
	if a.Title != b.Title ||
		a.Artist != b.Artist ||
		a.Album != b.Album ||
		a.PlaybackState != b.PlaybackState {
		return false
	}
	if len(a.Locations) != len(b.Locations) || len(a.Images) != len(b.Images) {
		return false
	}
	for i := range a.Locations {
		if a.Locations[i] != b.Locations[i] {
			return false
		}
	}
	for i := range a.Images {
		if a.Images[i] != b.Images[i] {
			return false
		}
	}
	return true
}
