package config

import "time"

// Application constants
const (
	AppName = "authsecure"

	// EnvPrefix namespaces every environment variable read by Load
	EnvPrefix = "AUTHSECURE"

	// Vendor backend
	DefaultEndpoint         = "https://authsecure.shop/post/api.php"
	DefaultUserAgent        = "authsecure-go/1.0"
	DefaultHTTPTimeout      = 15 * time.Second
	DefaultMaxResponseBytes = 1 << 20

	// Stub backend
	DefaultStubAddr       = "127.0.0.1:8089"
	DefaultStubRateLimit  = 20.0 // requests per second
	DefaultStubBurstSize  = 40
	DefaultStubSessionTTL = 24 * time.Hour

	// Logging
	DefaultLogLevel    = "info"
	DefaultLogOutput   = "console"
	DefaultLogFilePath = "logs/authsecure.log"
)

// configFileLocations are probed in order when no explicit path is given
var configFileLocations = []string{
	"authsecure.yaml",
	"configs/authsecure.yaml",
	"../configs/authsecure.yaml",
}
