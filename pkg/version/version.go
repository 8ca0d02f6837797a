// Package version identifies the running build.
package version

import "runtime/debug"

const app = "dramaturge"

// commitOverride may be injected with -ldflags for builds without VCS
// metadata.
var commitOverride string

// Full returns "dramaturge/<short-commit>", or "dramaturge/dev" when no
// revision is known.
func Full() string {
	return app + "/" + commit()
}

func commit() string {
	if commitOverride != "" {
		return shortRev(commitOverride)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return shortRev(s.Value)
			}
		}
	}
	return "dev"
}

func shortRev(rev string) string {
	if len(rev) > 8 {
		return rev[:8]
	}
	return rev
}
