// Package devicemon watches udev netlink events for removable storage so
// watch sessions can rescan when a device with a Bilibili cache appears.
package devicemon
