package httpapi

// maxBodyBytes caps generation request bodies. Default 1 MiB.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes configures the maximum request body size (<=0 restores the default).
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// healthcheckPath is the model server path proxied by GET /healthcheck when no
// registered handler declares one.
var healthcheckPath string

// SetHealthcheckPath configures the fallback upstream healthcheck path.
func SetHealthcheckPath(p string) { healthcheckPath = p }

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
