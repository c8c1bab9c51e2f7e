// Package version reports build provenance the same way for every
// cmd/ entry point.
package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
)

// GeckoKapulaVersion is set at build time via
// -ldflags "-X 'github.com/VDowbensky/geckokapula/internal/version.GeckoKapulaVersion=X'"
var GeckoKapulaVersion string

func settingOrDefault(bi *debug.BuildInfo, key, def string) string {
	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}
	return def
}

// Print writes a one-line version banner, or a full BuildInfo dump
// when verbose is set.
func Print(verbose bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		fmt.Println("geckokapula - version unknown (no build info)")
		return
	}

	buildTime := settingOrDefault(bi, "vcs.time", "UNKNOWN")
	commit := settingOrDefault(bi, "vcs.revision", "UNKNOWN")
	dirtyStr := settingOrDefault(bi, "vcs.modified", "INVALID")
	dirty, dirtyErr := strconv.ParseBool(dirtyStr)

	if dirty {
		commit += "-DIRTY"
	} else if dirtyErr != nil {
		commit += "-UNKNOWNDIRTY"
	}

	v := GeckoKapulaVersion
	if v == "" {
		v = "!UNKNOWN!"
	}

	fmt.Printf("geckokapula - Version %s (revision %s, built at %s)\n", v, commit, buildTime)

	if verbose {
		fmt.Printf("\nBuildInfo: %+v\n", bi)
	}
}
