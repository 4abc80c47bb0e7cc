package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

const hashFingerprintLength = 32

// HashFingerprint derives a kind-prefixed fingerprint from a stable external
// identifier, e.g. image_3f7a… for an aggregator post link. The derivation is
// deterministic: the same input always yields the same fingerprint.
func HashFingerprint(kind, id string) string {
	sum := sha256.Sum256([]byte(id))
	return kind + "_" + hex.EncodeToString(sum[:])[:hashFingerprintLength]
}

// FeedFingerprint prefers the feed entry's own GUID; entries without one fall
// back to a hash of the entry link.
func FeedFingerprint(guid, link string) string {
	if guid != "" {
		return guid
	}
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])
}

// VideoFingerprint derives the fingerprint for a video platform entry from
// its provider-native video ID.
func VideoFingerprint(videoID string) string {
	return "video_" + videoID
}
