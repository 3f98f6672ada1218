package version

// Product identifies cadenza to the media server.
const Product = "cadenza"

// Version is set at build time:
// go build -ldflags "-X github.com/cadenzamusic/cadenza/pkg/version.Version=1.0.0".
var Version = "dev"
