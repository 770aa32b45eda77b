// Package estimate sizes historical queries before they are executed, so
// tools can warn about large or expensive pulls and suggest cheaper
// alternatives without spending an upstream call.
package estimate
