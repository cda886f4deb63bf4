package runecast

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/amutnick/Runecast.Version=...".
var Version = "0.3.0"
