// Package types defines the values that cross the sqlbridge boundary: engine
// result codes, column type tags, materialized records and result sets, the
// bridge configuration, and the standard errors returned by the bridge.
package types
