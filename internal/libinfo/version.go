/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo provides information about the library build (e.g., its version)
// that is attached to the exported metrics.
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-utilkit"

// PrometheusLibVersionLabel is a name of the constant label with the library version.
const PrometheusLibVersionLabel = "go_utilkit_version"

// AddPrometheusLibVersionLabel returns a copy of labels extended with the library version label.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = GetLibVersion()
	return res
}

var (
	libVersion     string
	libVersionOnce sync.Once
)

// GetLibVersion returns the version of the library the binary was built with or "v0.0.0" if it's unknown.
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			libVersion = findModuleVersion(buildInfo, moduleName)
		}
		if libVersion == "" {
			libVersion = "v0.0.0"
		}
	})
	return libVersion
}

// findModuleVersion looks for the module in the build dependencies.
// Major version suffixes ("/v2", "/v3", ...) of the module path are taken into account.
func findModuleVersion(buildInfo *buildinfo.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
