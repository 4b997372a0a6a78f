// Package testsupport provides shared fixtures for package tests: temporary
// configurations, job stores, stubbed external binaries and on-disk cache
// trees shaped like the Bilibili Android client's download directory.
package testsupport
