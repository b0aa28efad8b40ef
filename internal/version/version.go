package version

// Version is overridden at build time with -ldflags "-X github.com/Thnoxs/localy-v1/internal/version.Version=...".
var Version = "dev"
