// Package hasher computes the content fingerprints that version execution steps.
package hasher

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"slices"
	"strings"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

const (
	fingerprintDomain = "memo.fingerprint.v1"
	versionDomain     = "memo.data_version.v1"
)

// Hasher derives fingerprints and data versions with SHA-256.
// Every field is length-prefixed so adjacent fields cannot run together.
type Hasher struct{}

// New creates a new Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Fingerprint hashes codeVersion with the canonical JSON encoding of payload.
// Maps are encoded with sorted keys, so equal payloads always hash equally.
func (h *Hasher) Fingerprint(codeVersion string, payload any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrConfigNotSerializable, "fingerprint"), "reason", err.Error())
	}

	digest := sha256.New()
	writeField(digest, fingerprintDomain)
	writeField(digest, codeVersion)
	writeField(digest, string(encoded))

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// DataVersion hashes fingerprint with the upstream versions sorted by key.
func (h *Hasher) DataVersion(fingerprint string, upstream []domain.UpstreamVersion) domain.DataVersion {
	sorted := slices.Clone(upstream)
	slices.SortFunc(sorted, func(a, b domain.UpstreamVersion) int {
		return strings.Compare(a.Key, b.Key)
	})

	digest := sha256.New()
	writeField(digest, versionDomain)
	writeField(digest, fingerprint)
	_ = binary.Write(digest, binary.BigEndian, uint64(len(sorted)))
	for _, up := range sorted {
		writeField(digest, up.Key)
		writeField(digest, up.Version.String())
	}

	return domain.DataVersion(hex.EncodeToString(digest.Sum(nil)))
}

func writeField(digest hash.Hash, field string) {
	_ = binary.Write(digest, binary.BigEndian, uint64(len(field)))
	_, _ = digest.Write([]byte(field))
}
