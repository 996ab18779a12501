//go:build !windows && !linux && !darwin

package hwid

import (
	"fmt"
	"runtime"
)

func platformID() (string, error) {
	return "", fmt.Errorf("machine identity not supported on %s", runtime.GOOS)
}
