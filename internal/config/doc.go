// Package config handles configuration loading for shopy.
//
// Configuration is loaded from a YAML file with ${VAR_NAME} environment
// variable expansion, then SHOPY_* environment variables override individual
// fields. Duration values use Go's time.ParseDuration syntax.
//
// Sections:
//
//	server:
//	  http_addr: "localhost:8080"
//	  base_url: "https://shop.example.com"
//
//	database:
//	  path: "/var/lib/shopy/shopy.db"
//
//	auth:
//	  jwt_secret: "${SHOPY_JWT_SECRET}"
//	  session_ttl: "168h"
//	  otp_ttl: "5m"
//	  reset_token_ttl: "30m"
//
//	media:
//	  dir: "/var/lib/shopy/media"
//	  max_upload_bytes: 5242880
//
//	gate:
//	  lookup_timeout: "5s"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
