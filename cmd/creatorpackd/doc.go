// Package main is the creatorpackd daemon entrypoint. It loads configuration,
// then hands off to daemonrun, which owns the process until SIGINT or SIGTERM.
package main
