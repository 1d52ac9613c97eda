package platform

import (
	"context"
	"sync"
	"time"
)

// Call is one recorded platform invocation, for test assertions.
type Call struct {
	Kind        string // delete-message, timeout, kick, ban, notice
	CommunityID string
	ChannelID   string
	MessageID   string
	UserID      string
	Until       time.Time
	Reason      string
	Text        string
}

// MockClient records calls and can be scripted to fail. Each queued error
// for a call kind is consumed by one invocation; once the queue drains,
// calls succeed.
type MockClient struct {
	mu    sync.Mutex
	calls []Call
	errs  map[string][]error
}

var _ Client = (*MockClient)(nil)

func NewMockClient() *MockClient {
	return &MockClient{errs: make(map[string][]error)}
}

// QueueError scripts the next invocations of a call kind to return errs in
// order.
func (m *MockClient) QueueError(kind string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind] = append(m.errs[kind], errs...)
}

func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsOfKind returns the successful (platform-visible) invocations of a
// kind; scripted failures consume their error without recording a call.
func (m *MockClient) CallsOfKind(kind string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockClient) record(c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if queue := m.errs[c.Kind]; len(queue) > 0 {
		err := queue[0]
		m.errs[c.Kind] = queue[1:]
		return err
	}
	m.calls = append(m.calls, c)
	return nil
}

func (m *MockClient) DeleteMessage(ctx context.Context, communityID, channelID, messageID string) error {
	return m.record(Call{Kind: "delete-message", CommunityID: communityID, ChannelID: channelID, MessageID: messageID})
}

func (m *MockClient) TimeoutUser(ctx context.Context, communityID, userID string, until time.Time, reason string) error {
	return m.record(Call{Kind: "timeout", CommunityID: communityID, UserID: userID, Until: until, Reason: reason})
}

func (m *MockClient) KickUser(ctx context.Context, communityID, userID, reason string) error {
	return m.record(Call{Kind: "kick", CommunityID: communityID, UserID: userID, Reason: reason})
}

func (m *MockClient) BanUser(ctx context.Context, communityID, userID, reason string) error {
	return m.record(Call{Kind: "ban", CommunityID: communityID, UserID: userID, Reason: reason})
}

func (m *MockClient) SendNotice(ctx context.Context, communityID, channelID, text string) error {
	return m.record(Call{Kind: "notice", CommunityID: communityID, ChannelID: channelID, Text: text})
}
