// Package auth provides API key authentication middleware for the
// rhythmscan REST surface.
//
// Middleware(mode, header, key, next) validates the key from the named
// HTTP header. When mode != "apikey" or key == "", all requests pass
// through (useful for local development with auth disabled). When the
// key is incorrect or absent, the middleware answers 401 immediately.
package auth
