// Package store provides SQLite-backed persistence for shopy: merchant
// accounts, browser sessions, storefronts, products, OTP codes, and
// passkey credentials.
package store
