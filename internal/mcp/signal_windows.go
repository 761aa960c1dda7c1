//go:build windows

package mcp

import (
	"os"
	"os/signal"
)

// notifySignals registers the shutdown signals. Windows has no SIGTERM, so
// only Ctrl+C (os.Interrupt) stops the server.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
