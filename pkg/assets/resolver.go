package assets

import (
	"io/fs"
	"net/http"
)

// Resolver turns a source asset name into the URL path pages link to.
type Resolver interface {
	Asset(source string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver resolves through m and prepends prefix.
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{manifest: m, prefix: prefix}
}

func (r *manifestResolver) Asset(source string) string {
	return r.prefix + r.manifest.Resolve(source)
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver leaves names unchanged apart from the prefix.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + source
}

// ImmutableCacheControl is sent with fingerprinted files.
const ImmutableCacheControl = "public, max-age=31536000, immutable"

// Handler serves fsys. Requests for a fingerprinted name are answered
// with the source file and ImmutableCacheControl; plain names are served
// with no-cache so they revalidate. Mount it behind http.StripPrefix.
func Handler(fsys fs.FS, m *Manifest) http.Handler {
	files := http.FileServer(http.FS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if src, ok := m.Source(name); ok {
			w.Header().Set("Cache-Control", ImmutableCacheControl)
			r2 := r.Clone(r.Context())
			r2.URL.Path = src
			r2.URL.RawPath = ""
			files.ServeHTTP(w, r2)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
