//go:build linux

package hwid

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// machineIDPaths are tried in order; the dbus copy exists on older systems
var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

func platformID() (string, error) {
	return readFirst(machineIDPaths)
}

func readFirst(paths []string) (string, error) {
	var errs []error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
		errs = append(errs, fmt.Errorf("%s is empty", path))
	}
	return "", fmt.Errorf("no machine id found: %w", errors.Join(errs...))
}
