package version

// Version is set at build time with -ldflags "-X uac-triage/core/internal/version.Version=...".
var Version = "dev"
