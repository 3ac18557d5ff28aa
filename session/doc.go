// Package session provides SessionService implementations. The in-memory
// variant backs tests and demos; persistent backends implement the same
// interface.
package session
