package testutil

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"authsecure/internal/config"
	"authsecure/internal/transport"
	"authsecure/pkg/contracts/domain"
)

// Canned response bodies in the vendor wire format
const (
	InitSuccessBody   = `{"success":true,"sessionid":"sess-42"}`
	AppPausedBody     = `{"success":false,"message":"App paused"}`
	BareFailureBody   = `{"success":false}`
	InvalidLoginBody  = `{"success":false,"message":"Invalid username or password"}`
	BobLoginBody      = `{"success":true,"info":{"username":"bob","hwid":"X","ip":"1.2.3.4","subscriptions":[{"subscription":"Pro","expiry":"2025-01-01"}]}}`
	MultiSubLoginBody = `{"success":true,"info":{"username":"carol","hwid":"H-1","ip":"10.0.0.7","subscriptions":[{"subscription":"Pro","expiry":"2025-01-01"},{"subscription":"Addon","expiry":"1767225600"}]}}`
)

// SampleClientConfig returns complete application credentials
func SampleClientConfig() config.ClientConfig {
	return config.ClientConfig{
		Name:    "demo-app",
		OwnerID: "owner-123",
		Secret:  "app-secret-value",
		Version: "1.0",
	}
}

// BobUserInfo is the decoded form of BobLoginBody
func BobUserInfo() *domain.UserInfo {
	return &domain.UserInfo{
		Username: "bob",
		HWID:     "X",
		IP:       "1.2.3.4",
		Subscriptions: []domain.Subscription{
			{Name: "Pro", Expiry: "2025-01-01"},
		},
	}
}

// FakeTransport records every submitted form and answers from a queue.
// When the queue is empty it repeats the last response.
type FakeTransport struct {
	mu        sync.Mutex
	forms     []url.Values
	responses []fakeResponse
	last      fakeResponse
}

type fakeResponse struct {
	body string
	err  error
}

// NewFakeTransport creates a transport answering with bodies in order
func NewFakeTransport(bodies ...string) *FakeTransport {
	f := &FakeTransport{}
	for _, b := range bodies {
		f.Respond(b)
	}
	return f
}

// Respond queues a JSON body
func (f *FakeTransport) Respond(body string) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{body: body})
	return f
}

// Fail queues a transport failure
func (f *FakeTransport) Fail(err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{err: err})
	return f
}

// Send implements transport.RequestTransport
func (f *FakeTransport) Send(ctx context.Context, form url.Values) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make(url.Values, len(form))
	for k, v := range form {
		copied[k] = append([]string(nil), v...)
	}
	f.forms = append(f.forms, copied)

	if err := ctx.Err(); err != nil {
		return nil, &transport.TransportError{Kind: transport.KindNetwork, Err: err}
	}

	next := f.last
	if len(f.responses) > 0 {
		next = f.responses[0]
		f.responses = f.responses[1:]
		f.last = next
	}
	if next.err != nil {
		return nil, next.err
	}
	if next.body == "" {
		return nil, &transport.TransportError{Kind: transport.KindNetwork, Err: errors.New("no response queued")}
	}
	return &transport.Response{Status: 200, Body: []byte(next.body)}, nil
}

// Forms returns copies of every submitted form in order
func (f *FakeTransport) Forms() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.forms...)
}

// Calls returns how many requests were sent
func (f *FakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.forms)
}

// LastForm returns the most recent submitted form, or nil
func (f *FakeTransport) LastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forms) == 0 {
		return nil
	}
	return f.forms[len(f.forms)-1]
}
