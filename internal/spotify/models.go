// Package spotify wraps the upstream Web API resources the visualizer
// consumes. Every response is validated against a fixed schema before it
// reaches a handler; drift fails loudly instead of being coerced.
package spotify

import (
	"fmt"

	"github.com/asaskevich/govalidator"

	dErrors "audiograph/pkg/domain-errors"
)

// Image is an artwork reference. Dimensions are absent on some playlist
// images, so only the URL is schema-required.
type Image struct {
	URL    string `json:"url" valid:"required"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// Followers counts are optional in several profile payloads.
type Followers struct {
	Href  *string `json:"href"`
	Total *int    `json:"total"`
}

// ExternalURLs carries the public link for an entity.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// User is the /v1/me profile. Its ID becomes the session identity.
type User struct {
	ID           string       `json:"id" valid:"required"`
	DisplayName  string       `json:"display_name"`
	Email        string       `json:"email" valid:"required"`
	Country      string       `json:"country"`
	Href         string       `json:"href" valid:"required"`
	URI          string       `json:"uri"`
	Type         string       `json:"type"`
	Product      string       `json:"product"`
	ExternalURLs ExternalURLs `json:"external_urls"`
	Followers    *Followers   `json:"followers"`
	Images       []Image      `json:"images"`
}

func (u *User) Validate() error {
	if _, err := govalidator.ValidateStruct(u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeSchemaValidation, "user payload failed schema validation")
	}
	return nil
}

// Owner is a playlist owner: a partial user profile.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Href        string `json:"href"`
	URI         string `json:"uri"`
}

// TrackRef summarizes a playlist's track collection.
type TrackRef struct {
	Href  string `json:"href" valid:"required"`
	Total int    `json:"total"`
}

// Playlist is a single playlist resource.
type Playlist struct {
	ID            string       `json:"id" valid:"required"`
	Name          string       `json:"name" valid:"required"`
	Description   string       `json:"description"`
	Collaborative bool         `json:"collaborative"`
	Public        *bool        `json:"public"`
	SnapshotID    string       `json:"snapshot_id" valid:"required"`
	Href          string       `json:"href" valid:"required"`
	URI           string       `json:"uri"`
	Owner         Owner        `json:"owner"`
	Images        []Image      `json:"images"`
	Tracks        TrackRef     `json:"tracks"`
	ExternalURLs  ExternalURLs `json:"external_urls"`
}

func (p *Playlist) Validate() error {
	if _, err := govalidator.ValidateStruct(p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeSchemaValidation, "playlist payload failed schema validation")
	}
	return nil
}

// PlaylistPage is one page of /v1/me/playlists.
type PlaylistPage struct {
	Href     string     `json:"href" valid:"required"`
	Items    []Playlist `json:"items"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
	Total    int        `json:"total"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
}

func (p *PlaylistPage) Validate() error {
	if _, err := govalidator.ValidateStruct(p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeSchemaValidation, "playlist page failed schema validation")
	}
	for i := range p.Items {
		if err := p.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Artist is the track credit subset the visualizer renders.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name" valid:"required"`
}

// Album carries the release name for tooltips.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a playable track. Local files have no ID and are skipped by the
// feature lookup.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name" valid:"required"`
	URI        string   `json:"uri"`
	DurationMS int      `json:"duration_ms"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// PlaylistTrack wraps a track entry in a playlist page.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// TrackPage is one page of /v1/playlists/{id}/tracks.
type TrackPage struct {
	Href     string          `json:"href" valid:"required"`
	Items    []PlaylistTrack `json:"items"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
	Total    int             `json:"total"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
}

func (p *TrackPage) Validate() error {
	if _, err := govalidator.ValidateStruct(p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeSchemaValidation, "track page failed schema validation")
	}
	for i, item := range p.Items {
		if item.Track == nil {
			continue // removed or local track entries decode as null
		}
		if _, err := govalidator.ValidateStruct(item.Track); err != nil {
			return dErrors.Wrap(err, dErrors.CodeSchemaValidation,
				fmt.Sprintf("track %d failed schema validation", i))
		}
	}
	return nil
}

// AudioFeatures is the per-track feature vector rendered as point
// coordinates. Ranges follow the upstream API: most features are 0..1,
// loudness is negative dB, tempo is BPM.
type AudioFeatures struct {
	ID               string  `json:"id" valid:"required"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMS       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
}

// AudioFeaturesPage is the /v1/audio-features?ids= envelope. Unknown ids
// come back as null entries.
type AudioFeaturesPage struct {
	AudioFeatures []*AudioFeatures `json:"audio_features"`
}

func (p *AudioFeaturesPage) Validate() error {
	for i, f := range p.AudioFeatures {
		if f == nil {
			continue
		}
		if _, err := govalidator.ValidateStruct(f); err != nil {
			return dErrors.Wrap(err, dErrors.CodeSchemaValidation,
				fmt.Sprintf("audio features %d failed schema validation", i))
		}
	}
	return nil
}
