// version.go
package version

// AppName holds the name of the application
var AppName = "go-api-authorizer-token"

// Version holds the current version of the application
var Version = "0.1.0"

// GetAppName returns the name of the application
func GetAppName() string {
	return AppName
}

// GetVersion returns the current version of the application
func GetVersion() string {
	return Version
}

// UserAgent returns the User-Agent header value sent with outbound requests.
func UserAgent() string {
	return AppName + "/" + Version
}
