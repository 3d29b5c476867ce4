// Package progress owns the resumable-download state: a durable set of
// completed source URLs (FileStore, BoltStore) and a console byte
// reporter for in-flight transfers.
package progress
