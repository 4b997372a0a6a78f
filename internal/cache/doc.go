// Package cache discovers and classifies Bilibili Android download caches.
//
// A cache lives under Android/data/<package>/download and holds one
// directory per downloaded page, each carrying an entry.json metadata file,
// optionally a cover image, and one subdirectory per cached quality with
// DASH segments (video.m4s, audio.m4s) plus an index.json manifest.
//
// The scanner walks configured roots, groups segment directories under their
// metadata, and classifies every variant as complete, incomplete (download
// still running) or corrupt. Directories without usable metadata are
// reported as parse failures rather than dropped silently.
package cache
