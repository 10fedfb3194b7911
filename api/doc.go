// Package api hosts the HTTP server that exposes the SOAP service, the JSON
// trip endpoint and a liveness probe behind CORS and panic-recovery
// middleware.
package api
