// Package domain contains the records exchanged with the vendor backend.
// These types are shared by the client and the stub backend.
package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// UserInfo is the account record returned by a successful login,
// registration or license redemption.
type UserInfo struct {
	Username      string         `json:"username" yaml:"username"`
	HWID          string         `json:"hwid" yaml:"hwid"`
	IP            string         `json:"ip" yaml:"ip"`
	Subscriptions []Subscription `json:"subscriptions" yaml:"subscriptions"`
}

// Subscription is one entitlement attached to a user, in server order
type Subscription struct {
	Name   string `json:"subscription" yaml:"subscription"`
	Expiry string `json:"expiry" yaml:"expiry"`
}

// UnmarshalJSON accepts the label and expiry as strings or numbers; a unix
// timestamp expiry keeps its digits.
func (s *Subscription) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name   Scalar `json:"subscription"`
		Expiry Scalar `json:"expiry"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = Subscription{Name: wire.Name.String(), Expiry: wire.Expiry.String()}
	return nil
}

// expiryLayouts are the date formats the backend has been seen to emit
var expiryLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ExpiresAt parses Expiry. The raw string stays authoritative; ok is false
// when the value matches none of the known layouts.
func (s Subscription) ExpiresAt() (t time.Time, ok bool) {
	for _, layout := range expiryLayouts {
		if parsed, err := time.Parse(layout, s.Expiry); err == nil {
			return parsed, true
		}
	}
	if secs, err := strconv.ParseInt(s.Expiry, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

// Expired reports whether the subscription ended before now.
// Unparseable expiries are never considered expired.
func (s Subscription) Expired(now time.Time) bool {
	t, ok := s.ExpiresAt()
	return ok && now.After(t)
}
