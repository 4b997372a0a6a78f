// Package queue persists export jobs in SQLite so batch runs survive
// inspection after the fact and interrupted runs are visible as failures.
package queue
