// Package events defines the events emitted on the event bus when a trip
// request is handled by any front end (SOAP, JSON or CLI).
package events
