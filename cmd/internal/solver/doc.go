// Package solver turns a submitted problem (typed text, an image or a PDF) into a
// worked solution by calling an OpenAI-compatible chat completion provider.
//
// Provider keys are tried in order by a KeyRing: quota and invalid-key errors
// move on to the next key, anything else ends the request. Provider and decoding
// failures are returned as the solution text with Failed set, so callers always
// have something to show.
package solver
