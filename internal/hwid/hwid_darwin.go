//go:build darwin

package hwid

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"
)

var platformUUIDPattern = regexp.MustCompile(`"IOPlatformUUID"\s*=\s*"([^"]+)"`)

func platformID() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return "", fmt.Errorf("ioreg failed: %w", err)
	}
	return parseIOPlatformUUID(out)
}

func parseIOPlatformUUID(out []byte) (string, error) {
	m := platformUUIDPattern.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("IOPlatformUUID not found in ioreg output")
	}
	return string(m[1]), nil
}
