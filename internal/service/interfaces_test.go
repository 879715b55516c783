package service

import (
	"github.com/ahiokk/tirika-import/internal/storage"
)

// The sqlite store is the production implementation of Storage; this fails
// to compile if either side drifts.
var _ Storage = (*storage.Store)(nil)
