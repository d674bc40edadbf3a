// Package youtube looks up public metadata and captions for YouTube videos.
//
// Nothing here downloads video or audio. Oembed fetches title and channel
// details through the oEmbed endpoint, and Transcript reads the legacy
// timedtext caption track, trying the requested language before the
// configured fallback.
package youtube
