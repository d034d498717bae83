package middleware

import "net/http"

// Func is the chi middleware signature.
type Func = func(http.Handler) http.Handler

// Guards are the per-route middleware module handlers apply to their routes.
// The router builds them once; nil entries are treated as pass-through.
type Guards struct {
	Auth        Func
	CacheShort  Func
	CacheMedium Func
}

// Normalize replaces nil entries with Passthrough.
func (g Guards) Normalize() Guards {
	if g.Auth == nil {
		g.Auth = Passthrough
	}
	if g.CacheShort == nil {
		g.CacheShort = Passthrough
	}
	if g.CacheMedium == nil {
		g.CacheMedium = Passthrough
	}
	return g
}

func Passthrough(next http.Handler) http.Handler { return next }
