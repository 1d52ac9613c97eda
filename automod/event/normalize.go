package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrMalformedEvent indicates a gateway payload which can not be normalized:
// missing a stable event ID, or missing an identifiable community or author.
// Such events are undeduplicatable and are dropped by the caller.
var ErrMalformedEvent = errors.New("malformed gateway event")

// ErrUnhandledEventType indicates a well-formed gateway frame of a type the
// pipeline does not inspect (typing, presence, reactions). Not an error
// condition; callers skip these.
var ErrUnhandledEventType = errors.New("unhandled gateway event type")

var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// RawGatewayEvent is one frame from the platform gateway stream: an opaque
// event type tag plus the payload document.
type RawGatewayEvent struct {
	Seq  int64           `json:"seq"`
	Type string          `json:"t"`
	Data json.RawMessage `json:"d"`
}

type rawUserRef struct {
	ID  string `json:"id"`
	Bot bool   `json:"bot"`
}

type rawAttachment struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type rawPayload struct {
	EventID     string          `json:"event_id"`
	CommunityID string          `json:"community_id"`
	ChannelID   string          `json:"channel_id"`
	Author      rawUserRef      `json:"author"`
	Content     string          `json:"content"`
	Mentions    []rawUserRef    `json:"mentions"`
	Attachments []rawAttachment `json:"attachments"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Normalize converts a raw gateway frame into the canonical InspectionEvent.
// Pure: no I/O, no shared state. Returns a wrapped ErrMalformedEvent when
// required identifiers are missing, or ErrUnhandledEventType for frame types
// the pipeline does not inspect.
func Normalize(raw *RawGatewayEvent) (*InspectionEvent, error) {
	var kind Kind
	switch raw.Type {
	case "MESSAGE_CREATE":
		kind = KindMessageCreate
	case "MESSAGE_UPDATE":
		kind = KindMessageEdit
	case "MEMBER_JOIN":
		kind = KindMemberJoin
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnhandledEventType, raw.Type)
	}

	var p rawPayload
	if err := json.Unmarshal(raw.Data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if p.EventID == "" {
		return nil, fmt.Errorf("%w: missing event_id", ErrMalformedEvent)
	}
	if p.CommunityID == "" {
		return nil, fmt.Errorf("%w: missing community_id", ErrMalformedEvent)
	}
	if p.Author.ID == "" {
		return nil, fmt.Errorf("%w: missing author", ErrMalformedEvent)
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	evt := InspectionEvent{
		CommunityID: p.CommunityID,
		AuthorID:    p.Author.ID,
		ChannelID:   p.ChannelID,
		EventID:     p.EventID,
		Kind:        kind,
		Content:     p.Content,
		Attachments: len(p.Attachments),
		Links:       len(urlPattern.FindAllString(p.Content, -1)),
		CreatedAt:   ts,
	}

	// count mentions of other, non-bot users; self-mentions don't ping anyone
	for _, m := range p.Mentions {
		if m.ID != p.Author.ID && !m.Bot {
			evt.Mentions++
		}
	}
	return &evt, nil
}
