package authsecure

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authsecure/internal/shared/testutil"
	"authsecure/pkg/contracts/domain"
)

func TestPrintUserInfo(t *testing.T) {
	var buf bytes.Buffer
	info := &domain.UserInfo{
		Username: "carol",
		HWID:     "H-1",
		IP:       "10.0.0.7",
		Subscriptions: []domain.Subscription{
			{Name: "Pro", Expiry: "2025-01-01"},
			{Name: "Addon", Expiry: "2026-06-30"},
		},
	}

	require.NoError(t, PrintUserInfo(&buf, info))
	assert.Equal(t, "\nUser Info:\n"+
		" Username: carol\n"+
		" HWID: H-1\n"+
		" IP: 10.0.0.7\n"+
		" Subscriptions:\n"+
		"  - Pro | Expires: 2025-01-01\n"+
		"  - Addon | Expires: 2026-06-30\n", buf.String())
}

func TestPrintUserInfoWithoutSubscriptions(t *testing.T) {
	var buf bytes.Buffer
	info := testutil.BobUserInfo()
	info.Subscriptions = nil

	require.NoError(t, PrintUserInfo(&buf, info))
	assert.NotContains(t, buf.String(), "Subscriptions")
	assert.Contains(t, buf.String(), " Username: bob\n")
}

func TestPrintUserInfoEmptySubscriptions(t *testing.T) {
	var info domain.UserInfo
	require.NoError(t, json.Unmarshal([]byte(`{"username":"dan","hwid":"H","ip":"1.1.1.1","subscriptions":[]}`), &info))

	var buf bytes.Buffer
	require.NoError(t, PrintUserInfo(&buf, &info))
	assert.Equal(t, "\nUser Info:\n Username: dan\n HWID: H\n IP: 1.1.1.1\n Subscriptions:\n", buf.String())
}

func TestPrintUserInfoNil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintUserInfo(&buf, nil))
	assert.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPrintUserInfoWriteError(t *testing.T) {
	assert.Error(t, PrintUserInfo(failingWriter{}, testutil.BobUserInfo()))
}
