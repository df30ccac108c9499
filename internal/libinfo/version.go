/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo reports the version of the running binary.
package libinfo

import (
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AppName is the name of the application, used in User-Agent and metrics.
const AppName = "ppgsite"

// PrometheusVersionLabel is the label of the build info metric that holds the version.
const PrometheusVersionLabel = "version"

const develVersion = "v0.0.0-dev"

var version string
var versionOnce sync.Once

// GetVersion returns the version of the main module, or the VCS revision for development builds.
func GetVersion() string {
	versionOnce.Do(func() {
		buildInfo, _ := debug.ReadBuildInfo()
		version = extractVersion(buildInfo)
	})
	return version
}

// UserAgent returns the User-Agent value for outgoing requests, e.g. "ppgsite/v1.2.0".
func UserAgent() string {
	return AppName + "/" + GetVersion()
}

// NewBuildInfoGauge returns a gauge that is always 1 and carries the version label.
func NewBuildInfoGauge(namespace string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information of the running binary.",
		ConstLabels: prometheus.Labels{PrometheusVersionLabel: GetVersion()},
	})
}

func extractVersion(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil {
		return develVersion
	}
	if v := buildInfo.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	for _, s := range buildInfo.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			return develVersion + "+" + s.Value[:12]
		}
	}
	return develVersion
}
