// Package versioninfo carries build metadata, set at link time with
// -ldflags "-X github.com/taharajati/habit-tracker/pkg/versioninfo.Version=...".
package versioninfo

var (
	Version   = "dev"
	BuildDate = "unknown"
)

type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
}
