package app

import (
	"fmt"

	cryptoUseCase "github.com/trustchecker/atrest/internal/crypto/usecase"
	"github.com/trustchecker/atrest/internal/database"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
	piiHook "github.com/trustchecker/atrest/internal/pii/hook"
	piiRepository "github.com/trustchecker/atrest/internal/pii/repository"
)

// PiiFieldMap returns the registry of encrypted fields per model.
func (c *Container) PiiFieldMap() piiDomain.PiiFieldMap {
	c.piiFieldMapInit.Do(func() {
		c.piiFieldMap = piiDomain.DefaultPiiFieldMap()
	})
	return c.piiFieldMap
}

// PiiHook returns the persistence middleware that encrypts PII on write and
// decrypts it on read.
func (c *Container) PiiHook() (*piiHook.Hook, error) {
	var err error
	c.piiHookInit.Do(func() {
		var cipher piiHook.FieldCipher
		cipher, err = c.FieldCipher()
		if err != nil {
			err = fmt.Errorf("failed to get field cipher for pii hook: %w", err)
			c.initErrors["piiHook"] = err
			return
		}
		c.piiHook = piiHook.NewHook(c.PiiFieldMap(), cipher, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["piiHook"]; exists {
		return nil, storedErr
	}
	return c.piiHook, nil
}

// RecordRepository returns the PII record repository based on database driver.
func (c *Container) RecordRepository() (cryptoUseCase.RecordRepository, error) {
	var err error
	c.recordRepositoryInit.Do(func() {
		c.recordRepository, err = c.initRecordRepository()
		if err != nil {
			c.initErrors["recordRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordRepository"]; exists {
		return nil, storedErr
	}
	return c.recordRepository, nil
}

// initRecordRepository creates the record repository based on the database driver.
func (c *Container) initRecordRepository() (cryptoUseCase.RecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return piiRepository.NewPostgreSQLRecordRepository(db), nil
	case database.DriverMySQL:
		return piiRepository.NewMySQLRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}
