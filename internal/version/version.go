// ABOUTME: Product and version constants
// ABOUTME: Shared by the CLI, the review server and watcher handshakes
package version

const (
	Version      = "0.3.0"
	Product      = "mixcheck"
	Manufacturer = "Mixroom"
)

// UserAgent identifies mixcheck in outbound HTTP requests
func UserAgent() string {
	return Product + "/" + Version
}
