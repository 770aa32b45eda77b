// Package health reports whether the server's dependencies are usable:
// the response cache round-trips, the upstream API answers, the API key
// has the expected shape, and process memory is within bounds.
//
// Individual checks implement Checker. An Aggregator fans the registered
// checks out concurrently and folds their results into one Status; HTTP
// handlers expose liveness, readiness, and detailed views on the
// operational listener.
package health
