package usecase

import (
	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoService "github.com/trustchecker/atrest/internal/crypto/service"
	apperrors "github.com/trustchecker/atrest/internal/errors"
)

// errAlreadyRotated marks a field that already opens under the new key, left
// behind by an earlier aborted run with the same keys.
var errAlreadyRotated = apperrors.New("field already under new key")

// sweepKeys holds the tenant keys derived for one rotation run.
//
// They are derived outside the shared derived-key cache and zeroed when the run
// ends, so neither master key leaks into state that live traffic reads.
type sweepKeys struct {
	deriver   *cryptoService.KeyDeriver
	oldMaster []byte
	newMaster []byte
	old       map[string][]byte
	new       map[string][]byte
}

func newSweepKeys(deriver *cryptoService.KeyDeriver, oldMaster, newMaster []byte) *sweepKeys {
	return &sweepKeys{
		deriver:   deriver,
		oldMaster: oldMaster,
		newMaster: newMaster,
		old:       make(map[string][]byte),
		new:       make(map[string][]byte),
	}
}

func (s *sweepKeys) tenantKey(cache map[string][]byte, master []byte, tenantID string) ([]byte, error) {
	if key, ok := cache[tenantID]; ok {
		return key, nil
	}
	key, err := s.deriver.DeriveUncached(master, tenantID)
	if err != nil {
		return nil, err
	}
	cache[tenantID] = key
	return key, nil
}

// reencrypt opens envelope with the old tenant key and seals it with the new one.
func (s *sweepKeys) reencrypt(tenantID, envelope string) (string, error) {
	oldKey, err := s.tenantKey(s.old, s.oldMaster, tenantID)
	if err != nil {
		return "", err
	}
	newKey, err := s.tenantKey(s.new, s.newMaster, tenantID)
	if err != nil {
		return "", err
	}

	plaintext, err := cryptoService.OpenEnvelope(oldKey, envelope)
	if err != nil {
		if _, newErr := cryptoService.OpenEnvelope(newKey, envelope); newErr == nil {
			return "", errAlreadyRotated
		}
		return "", err
	}
	return cryptoService.SealEnvelope(newKey, plaintext)
}

func (s *sweepKeys) close() {
	cryptoDomain.ZeroMap(s.old)
	cryptoDomain.ZeroMap(s.new)
}
