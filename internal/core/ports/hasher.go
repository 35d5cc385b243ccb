package ports

import "go.trai.ch/memo/internal/core/domain"

// Hasher computes deterministic content fingerprints.
//
//go:generate go run go.uber.org/mock/mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type Hasher interface {
	// Fingerprint hashes a code version together with a canonical
	// serialization of payload.
	Fingerprint(codeVersion string, payload any) (string, error)

	// DataVersion combines a fingerprint with upstream versions. The result
	// does not depend on the order of upstream.
	DataVersion(fingerprint string, upstream []domain.UpstreamVersion) domain.DataVersion
}
