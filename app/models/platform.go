package models

// Platform identifies the social network that delivered a webhook.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
)

// AllPlatforms lists every supported platform in a stable order.
var AllPlatforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformTwitter,
	PlatformLinkedIn,
}

// IsValidPlatform reports whether the given name is a supported platform.
func IsValidPlatform(name string) bool {
	switch Platform(name) {
	case PlatformFacebook, PlatformInstagram, PlatformTwitter, PlatformLinkedIn:
		return true
	}
	return false
}
