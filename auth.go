package main

import (
	"net/http"
	"strings"

	"github.com/urfave/negroni"
)

// Authentication is delegated to the reverse proxy in front of this app: it
// injects the authenticated account name into a request header, and we
// trust that value verbatim. Authorization is a static allow-list.

type Principal struct {
	Username string
}

// fallback headers various IIS/ARR setups use for the logon user.
var fallbackIdentityHeaders = []string{
	"x-auth-user",
	"x-arr-logonuser",
	"x-iisnode-logon_user",
}

// PrincipalResolver extracts the proxy-asserted identity from request
// headers. It is the seam for swapping in another identity source.
type PrincipalResolver struct {
	HeaderName string
}

func (pr PrincipalResolver) Resolve(h http.Header) (Principal, bool) {
	user := normalizeUser(pr.rawIdentity(h))
	if user == "" {
		return Principal{}, false
	}

	return Principal{Username: user}, true
}

// rawIdentity returns the proxy header value as sent, untouched.
func (pr PrincipalResolver) rawIdentity(h http.Header) string {
	raw := h.Get(pr.HeaderName)
	for _, name := range fallbackIdentityHeaders {
		if raw != "" {
			break
		}
		raw = h.Get(name)
	}

	return raw
}

// stripDomain drops the DOMAIN\ prefix from a Windows account name.
func stripDomain(raw string) string {
	if i := strings.LastIndex(raw, `\`); i >= 0 {
		raw = raw[i+1:]
	}

	return raw
}

// normalizeUser reduces an account name to its allow-list form: no domain
// prefix, lowercased.
func normalizeUser(raw string) string {
	return strings.ToLower(strings.TrimSpace(stripDomain(raw)))
}

type adminGate struct {
	resolver PrincipalResolver
	allowed  map[string]struct{}
	devMode  bool
}

func newAdminGate(cfg CfgAuth) *adminGate {
	allowed := make(map[string]struct{}, len(cfg.AdminUsers))
	for _, u := range cfg.AdminUsers {
		u = normalizeUser(u)
		if u != "" {
			allowed[u] = struct{}{}
		}
	}

	return &adminGate{
		resolver: PrincipalResolver{HeaderName: cfg.HeaderName},
		allowed:  allowed,
		devMode:  cfg.DevMode,
	}
}

// Identify returns the effective principal and whether it may mutate. With
// dev mode on and no proxy header present, a stand-in admin is returned so
// the app is usable without the proxy.
func (g *adminGate) Identify(h http.Header) (Principal, bool) {
	p, ok := g.resolver.Resolve(h)
	if !ok {
		if g.devMode {
			return Principal{Username: "dev"}, true
		}
		return Principal{}, false
	}

	_, isAdmin := g.allowed[p.Username]
	return p, isAdmin
}

// requireAdmin gates mutating API requests. Reads stay open; only
// non-GET/HEAD/OPTIONS methods need an allow-listed identity.
func requireAdmin(g *adminGate) negroni.HandlerFunc {
	return negroni.HandlerFunc(func(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		if _, isAdmin := g.Identify(r.Header); !isAdmin {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}

		next(w, r)
	})
}
