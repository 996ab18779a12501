package hwid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"strings"
)

// FingerprintIdentity derives an identity from the primary MAC address and
// hostname. Use it where the platform identifier is unavailable or shared,
// such as containers cloned from one image.
type FingerprintIdentity struct {
	logger     *slog.Logger
	interfaces func() ([]net.Interface, error)
	hostname   func() (string, error)
}

// Fingerprint returns a hardware fingerprint identity provider
func Fingerprint(logger *slog.Logger) *FingerprintIdentity {
	if logger == nil {
		logger = slog.Default()
	}
	return &FingerprintIdentity{
		logger:     logger.With("component", "hwid"),
		interfaces: net.Interfaces,
		hostname:   os.Hostname,
	}
}

// HWID implements MachineIdentity
func (f *FingerprintIdentity) HWID() string {
	return Resolve(f.generate, f.logger)
}

func (f *FingerprintIdentity) generate() (string, error) {
	mac, err := f.macAddress()
	if err != nil {
		return "", err
	}

	hostname, err := f.hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return "", fmt.Errorf("hostname is empty")
	}

	combined := strings.Join([]string{mac, hostname, runtime.GOOS}, "|")
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:]), nil
}

// macAddress prefers the first up, non-loopback interface and falls back to any
// interface carrying a hardware address.
func (f *FingerprintIdentity) macAddress() (string, error) {
	interfaces, err := f.interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to get network interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if mac := validMAC(iface); mac != "" {
			return mac, nil
		}
	}

	for _, iface := range interfaces {
		if mac := validMAC(iface); mac != "" {
			f.logger.Debug("Using fallback MAC address", slog.String("interface", iface.Name))
			return mac, nil
		}
	}

	return "", fmt.Errorf("no valid MAC address found")
}

func validMAC(iface net.Interface) string {
	if len(iface.HardwareAddr) == 0 {
		return ""
	}
	mac := iface.HardwareAddr.String()
	if mac == "00:00:00:00:00:00" {
		return ""
	}
	return mac
}
