package updater

import (
	"path/filepath"
	"strings"
)

// An ExclusionRule is a sequence of path-segment matchers; "*" matches
// any single segment. Rules protect user-data subtrees during
// overlay-merge.
type ExclusionRule []string

// Wildcard matches any single path segment.
const Wildcard = "*"

// userDataRules protect per-user application data and documents inside
// the bundle, whatever the Windows user name segment is.
var userDataRules = []ExclusionRule{
	{"drive_c", "users", Wildcard, "appdata", "roaming"},
	{"drive_c", "users", Wildcard, "appdata", "local"},
	{"drive_c", "users", Wildcard, "appdata", "locallow"},
	{"drive_c", "users", Wildcard, "documents"},
}

// protectedNames are registry state files, excluded wherever they occur.
var protectedNames = map[string]bool{
	"user.reg":    true,
	"userdef.reg": true,
}

// Excluded reports whether rel (a path relative to the bundle root)
// must never be overwritten by an overlay-merge. Matching is
// case-insensitive.
func Excluded(rel string) bool {
	segments := strings.Split(strings.ToLower(filepath.ToSlash(rel)), "/")
	if len(segments) == 0 || segments[0] == "" {
		return false
	}
	if protectedNames[segments[len(segments)-1]] {
		return true
	}
	for _, rule := range userDataRules {
		if rule.matches(segments) {
			return true
		}
	}
	return false
}

func (r ExclusionRule) matches(segments []string) bool {
	if len(segments) < len(r) {
		return false
	}
	for i, matcher := range r {
		if matcher != Wildcard && matcher != segments[i] {
			return false
		}
	}
	return true
}

// rsyncExcludes renders the same rules as rsync --exclude globs.
func rsyncExcludes() []string {
	patterns := make([]string, 0, len(userDataRules)+len(protectedNames))
	patterns = append(patterns,
		"drive_c/users/*/AppData/Roaming/",
		"drive_c/users/*/AppData/Local/",
		"drive_c/users/*/AppData/LocalLow/",
		"drive_c/users/*/Documents/",
	)
	patterns = append(patterns, "user.reg", "userdef.reg")
	return patterns
}
