// Package notify delivers the user-facing outcome of a conversion attempt.
//
// A Toast carries a title, a description and a severity. The web front end
// collects toasts with a Recorder and returns them in the attempt status; the
// command line prints them with Console. Ntfy optionally forwards the same
// toasts to a phone.
package notify
