package entrypoints

import "github.com/lhapaipai/vite-plugin-symfony/internal/log"

// Resolved is the resource set of one resolved descriptor. Every list is
// deduplicated and prefixed with the public base path.
type Resolved struct {
	JS      []string
	CSS     []string
	Preload []string
	Dynamic []string
}

// Resolver turns descriptors into resource lists by walking static import
// edges of the FileStore.
type Resolver struct {
	Base     string
	Store    *FileStore
	External ExternalFunc
}

// Resolve walks root's static import graph. visited is keyed by output path;
// every unit found in it is skipped, which guarantees termination on cycles.
// Pass nil to start a fresh walk.
//
// A unit reached through a second static path (a diamond) is skipped as
// well, so contributions only visible through that second path are lost.
func (r *Resolver) Resolve(root FileDescriptor, visited map[string]struct{}) (Resolved, error) {
	if visited == nil {
		visited = make(map[string]struct{})
	}
	var (
		js      pathList
		css     pathList
		preload pathList
		dynamic pathList
	)

	visited[root.Output()] = struct{}{}

	switch f := root.(type) {
	case *JSFile:
		for _, imp := range f.StaticImports {
			if _, seen := visited[imp]; seen {
				log.Trace("static import already visited", "importer", f.OutputPath, "import", imp)
				continue
			}
			visited[imp] = struct{}{}
			log.Trace("following static import", "importer", f.OutputPath, "import", imp)

			child, ok := r.Store.Get(imp)
			if !ok {
				if r.External != nil && r.External(imp, f.SourcePath) {
					continue
				}
				return Resolved{}, &ImportError{Importer: f.OutputPath, Import: imp}
			}

			sub, err := r.Resolve(child, visited)
			if err != nil {
				return Resolved{}, err
			}
			css.add(sub.CSS...)
			// statically imported scripts are preloaded, not loaded as roots
			preload.add(sub.JS...)
			preload.add(sub.Preload...)
			dynamic.add(sub.Dynamic...)
		}

		js.add(r.prefix(f.DirectJS)...)
		dynamic.add(r.prefix(f.DynamicImports)...)
		css.add(r.prefix(f.DirectCSS)...)
	case *CSSFile:
		css.add(r.prefix(f.DirectCSS)...)
	case *AssetFile:
		// no manifest category; assets surface through hash metadata only
	}

	return Resolved{
		JS:      js.slice(),
		CSS:     css.slice(),
		Preload: preload.slice(),
		Dynamic: dynamic.slice(),
	}, nil
}

func (r *Resolver) prefix(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = r.Base + p
	}
	return out
}

// pathList is an insertion-ordered set of paths.
type pathList struct {
	items []string
	seen  map[string]struct{}
}

func (l *pathList) add(paths ...string) {
	for _, p := range paths {
		if l.seen == nil {
			l.seen = make(map[string]struct{})
		}
		if _, ok := l.seen[p]; ok {
			continue
		}
		l.seen[p] = struct{}{}
		l.items = append(l.items, p)
	}
}

// slice returns the items, never nil.
func (l *pathList) slice() []string {
	if l.items == nil {
		return []string{}
	}
	return l.items
}
