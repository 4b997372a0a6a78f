// Command bilicache scans mounted Android storage for Bilibili download
// caches and exports them as playable video files via ffmpeg.
package main
