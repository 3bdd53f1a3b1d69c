package hankosign

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprint computes the immutable signature id: HMAC-SHA256 over the
// canonical tuple "verb|stage|typeKey|objectID" keyed with the process
// secret and the signatory's base key. The canonical encoding is frozen:
// any change breaks fingerprint comparisons for historical signatures.
func fingerprint(secret []byte, baseKey string, verb Verb, stage, targetType, targetID string) string {
	msg := strings.Join([]string{string(verb), stage, targetType, targetID}, "|")
	key := append(append([]byte{}, secret...), ':')
	key = append(key, baseKey...)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewBaseKey generates a signatory secret: 256 bits of entropy, hex
// encoded. Generated once per signatory, never rotated.
func NewBaseKey() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
