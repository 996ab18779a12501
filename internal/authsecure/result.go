package authsecure

import (
	"authsecure/internal/transport"
	api "authsecure/pkg/contracts/api/v1"
	"authsecure/pkg/contracts/domain"
)

// Result is the decoded outcome of one request. Success selects which of the
// remaining fields apply.
type Result struct {
	Success   bool
	Message   string
	SessionID string
	Info      *domain.UserInfo
}

func decodeResult(resp *transport.Response) (*Result, error) {
	var env api.Envelope
	if err := resp.Decode(&env); err != nil {
		return nil, err
	}
	return &Result{
		Success:   env.Success,
		Message:   env.Message.String(),
		SessionID: env.SessionID,
		Info:      env.Info,
	}, nil
}
