// Package upstream holds the vendor API clients the tools call through the
// execution layer.
//
// HistoricalClient is the long-lived HTTP client for the historical and
// metadata endpoints; one instance is shared through a pool.Singleton.
// LiveSession is a disposable TCP session to the live gateway; it cannot be
// reused after Close and is handed out through a pool.Fresh.
package upstream
