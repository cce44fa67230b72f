// Package auth provides bearer-token authentication for the JSON API:
// HS256 JWT issue/verify plus HTTP middleware that resolves the token's
// merchant and attaches it to the request context.
package auth
