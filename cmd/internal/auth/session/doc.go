// Package session implements Aya's single-device session model.
//
// Each username has at most one bound device. Logging in from a new device
// claims the binding and displaces the previous device, which is told about it
// through a Notifier. The binding lives until it is displaced or released.
//
// Browsers hold a PASETO v4.public token carrying the username and device id.
// A token is only honored while its device is still the bound one.
package session
