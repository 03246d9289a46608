// Package history persists resolved plan outcomes to a local SQLite journal
// so operators can inspect completed transfers after the engines themselves
// have been released from the registry. Recording is optional and strictly
// after-the-fact: the completion engine never reads the journal and resolves
// plans identically with or without it.
package history
