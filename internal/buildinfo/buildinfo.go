// Package buildinfo carries version data stamped at link time, e.g.
//
//	go build -ldflags "-X liveroute/internal/buildinfo.Version=v1.2.0"
package buildinfo

import "runtime"

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
		"go":      runtime.Version(),
	}
}
