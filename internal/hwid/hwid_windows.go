//go:build windows

package hwid

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// platformID returns the SID of the user owning the current process
func platformID() (string, error) {
	token := windows.GetCurrentProcessToken()
	user, err := token.GetTokenUser()
	if err != nil {
		return "", fmt.Errorf("failed to read token user: %w", err)
	}
	if user.User.Sid == nil {
		return "", fmt.Errorf("token user has no SID")
	}
	return user.User.Sid.String(), nil
}
