package authsecure

import (
	"fmt"
	"io"

	"authsecure/pkg/contracts/domain"
)

// PrintUserInfo writes the user info block in server order. A nil info
// writes nothing.
func PrintUserInfo(w io.Writer, info *domain.UserInfo) error {
	if info == nil {
		return nil
	}

	if _, err := fmt.Fprintf(w, "\nUser Info:\n Username: %s\n HWID: %s\n IP: %s\n",
		info.Username, info.HWID, info.IP); err != nil {
		return err
	}
	// an absent list prints no header; an empty one prints it alone
	if info.Subscriptions == nil {
		return nil
	}

	if _, err := fmt.Fprintln(w, " Subscriptions:"); err != nil {
		return err
	}
	for _, sub := range info.Subscriptions {
		if _, err := fmt.Fprintf(w, "  - %s | Expires: %s\n", sub.Name, sub.Expiry); err != nil {
			return err
		}
	}
	return nil
}
