// Package server implements the HTTP surface of the upload relay. It
// wires together the routes, dependencies (upload orchestrator, storage
// gateway, credential provider), and provides lifecycle helpers used by
// tests and the production binary.
package server
