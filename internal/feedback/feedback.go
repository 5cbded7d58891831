// Package feedback ingests engagement events: the views, likes, and
// watch-time signals that keep content features and interest profiles
// current. Recording is fire-and-forget; a bounded queue and a worker
// decouple the request path from the handlers behind it.
package feedback

import (
	"errors"
	"time"
)

// Engagement event errors.
var (
	ErrMissingUser    = errors.New("missing user id in event")
	ErrMissingContent = errors.New("missing content id in event")
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrInvalidCBOR    = errors.New("invalid CBOR data")
)

// Kind is the engagement action a user took.
type Kind string

const (
	KindView    Kind = "view"
	KindLike    Kind = "like"
	KindComment Kind = "comment"
	KindShare   Kind = "share"
	KindSave    Kind = "save"
	KindSkip    Kind = "skip"
	KindWatch   Kind = "watch"
)

var validKinds = map[Kind]struct{}{
	KindView:    {},
	KindLike:    {},
	KindComment: {},
	KindShare:   {},
	KindSave:    {},
	KindSkip:    {},
	KindWatch:   {},
}

// Event is one engagement action on one piece of content.
type Event struct {
	// UserID is the account that acted.
	UserID string `json:"user_id" cbor:"user_id"`

	// ContentID is the content acted on.
	ContentID string `json:"content_id" cbor:"content_id"`

	// CreatorID is the content's author, carried so handlers need no
	// content lookup.
	CreatorID string `json:"creator_id,omitempty" cbor:"creator_id,omitempty"`

	// Kind is the action taken.
	Kind Kind `json:"kind" cbor:"kind"`

	// WatchSeconds is the watch duration for KindWatch events.
	WatchSeconds float64 `json:"watch_seconds,omitempty" cbor:"watch_seconds,omitempty"`

	// OccurredAt is when the action happened, client-reported.
	OccurredAt time.Time `json:"occurred_at" cbor:"occurred_at"`
}

// Validate checks the event carries the required fields.
func (e *Event) Validate() error {
	if e.UserID == "" {
		return ErrMissingUser
	}
	if e.ContentID == "" {
		return ErrMissingContent
	}
	if _, ok := validKinds[e.Kind]; !ok {
		return ErrUnknownKind
	}
	return nil
}
