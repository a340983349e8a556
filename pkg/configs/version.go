package configs

// AppName 与 AppVersion 在构建时可通过 -ldflags 覆盖.
var (
	AppName    = "filedrop"
	AppVersion = "0.1.0"
)
