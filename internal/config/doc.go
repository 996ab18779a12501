// Package config provides centralized configuration management for authsecure.
// It loads settings from multiple sources, validates them, and exposes typed
// sections to the client, transport, logger, telemetry and stub backend.
//
// # Configuration Sources
//
// Configuration is layered in the following order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables use the AUTHSECURE_ prefix followed by the
// section and field name:
//
//	AUTHSECURE_CLIENT_NAME=myapp
//	AUTHSECURE_CLIENT_OWNER_ID=abc123
//	AUTHSECURE_CLIENT_SECRET=...
//	AUTHSECURE_CLIENT_VERSION=1.0
//	AUTHSECURE_TRANSPORT_ENDPOINT=https://authsecure.shop/post/api.php
//	AUTHSECURE_LOGGING_LEVEL=debug
//
// # Validation
//
// Load validates every section with go-playground/validator struct tags.
// Client credentials are only required by programs that talk to the backend,
// so they are checked separately through Config.ValidateClient.
package config
