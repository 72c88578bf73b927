package utils

// Build metadata, overridden at link time with
// -ldflags "-X github.com/packetlog/packetlogd/utils.Tag=...".
var (
	Tag        = "dev"
	GitHash    = "unknown"
	BuildStamp = "unknown"
)
