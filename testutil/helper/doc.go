// Package helper provides test support for the circulation engine: an
// embedded SQLite wrapper that runs the engine against an in-memory store,
// observability spies, and a fixed clock.
package helper
