package version

// EmptyValue is the version reported by binaries built without release
// flags, such as those built by `go test`.
const EmptyValue = "dev"

// Version is the release tag of the binary. It's set at build time with
//
//	-ldflags "-X github.com/sidkik/foldersync/pkg/version.Version=<tag>"
var Version = EmptyValue
