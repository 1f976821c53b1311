// Package ratelimit provides in-process sliding-window limiters.
//
// Window limits one stream of events (a websocket connection). Keyed keeps
// one window per key (client IP, username) and also records failures for
// progressive lockout.
package ratelimit
