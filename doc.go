// Package auth implements the authentication and gym session-orchestration
// core for the fitcrew gym-management platform: credential and Google OAuth
// sign-in, stateless session tokens carrying role and gym claims, the
// gym-attachment flow, and the route authorization gate.
//
// User records, credential verification, and gym membership are owned by the
// backend identity API; this package consumes it over HTTP and never persists
// state of its own.
package auth
