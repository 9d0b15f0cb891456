package tenant

import "errors"

var (
	ErrNotFound           = errors.New("tenant: not found")
	ErrAlreadyExists      = errors.New("tenant: already exists")
	ErrNotActive          = errors.New("tenant: not active")
	ErrNotResolved        = errors.New("tenant: no tenant bound to context")
	ErrInvalidSchema      = errors.New("tenant: invalid schema name")
	ErrSchemaProvisioning = errors.New("tenant: schema provisioning failed")
)
