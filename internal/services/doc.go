// Package services holds cross-cutting service plumbing: error sentinels for
// failure classification and context annotation helpers shared by the export
// pipeline and its external tool clients.
package services
