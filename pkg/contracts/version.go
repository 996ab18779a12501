package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the module
	Version = "1.0.0"

	// ProtocolVersion identifies the vendor wire protocol this module speaks
	ProtocolVersion = "form-v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocol_version"`
	BuildTime       string `json:"build_time"`
	GitCommit       string `json:"git_commit"`
	GoVersion       string `json:"go_version"`
	OS              string `json:"os"`
	Architecture    string `json:"architecture"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:         Version,
		ProtocolVersion: ProtocolVersion,
		BuildTime:       BuildTime,
		GitCommit:       GitCommit,
		GoVersion:       runtime.Version(),
		OS:              runtime.GOOS,
		Architecture:    runtime.GOARCH,
	}
}

// GetFullVersionString returns a detailed version string
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("authsecure v%s (protocol %s, commit %s, %s, %s/%s)",
		info.Version, info.ProtocolVersion, info.GitCommit, info.GoVersion, info.OS, info.Architecture)
}
