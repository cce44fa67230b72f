// Package throttle provides a time-windowed hit limiter used to throttle
// OTP resends and repeated login attempts.
package throttle
