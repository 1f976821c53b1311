// Package identity is Aya's credential store.
//
// A credential is a username mapped to a password digest inside a flat
// docstore.Document. Accounts are created only by enrollment (gated by an
// administrator secret) or by seeding an empty store from configuration.
// Usernames are case-sensitive and stored exactly as entered.
package identity
