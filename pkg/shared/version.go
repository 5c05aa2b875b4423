package shared

// Build metadata, overridden at link time:
//
//	go build -ldflags "-X github.com/opsdep/appdctl/pkg/shared.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)
