package entrypoints

import (
	"fmt"
	"regexp"
	"strings"
)

// ExternalFunc reports whether an import id was intentionally left out of
// the bundle. importer is the source path of the importing unit.
type ExternalFunc func(id, importer string) bool

// MatchExternal compiles external patterns from configuration. A pattern
// wrapped in slashes ("/^lodash/") is a regular expression; any other
// pattern matches the id exactly.
func MatchExternal(patterns []string) (ExternalFunc, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	exact := make(map[string]struct{})
	var res []*regexp.Regexp
	for _, p := range patterns {
		if len(p) > 2 && strings.HasPrefix(p, "/") && strings.HasSuffix(p, "/") {
			re, err := regexp.Compile(p[1 : len(p)-1])
			if err != nil {
				return nil, fmt.Errorf("%w: external pattern %q: %v", ErrConfiguration, p, err)
			}
			res = append(res, re)
			continue
		}
		exact[p] = struct{}{}
	}

	return func(id, _ string) bool {
		if _, ok := exact[id]; ok {
			return true
		}
		for _, re := range res {
			if re.MatchString(id) {
				return true
			}
		}
		return false
	}, nil
}

// AnyExternal combines predicates; nil predicates are skipped.
func AnyExternal(fns ...ExternalFunc) ExternalFunc {
	return func(id, importer string) bool {
		for _, fn := range fns {
			if fn != nil && fn(id, importer) {
				return true
			}
		}
		return false
	}
}
