package storage

import (
	"context"

	"github.com/arbwatch/pmspread/pkg/types"
)

// Storage is the interface for recording closed spread windows, the
// external "durable storage" consumer the data flow names.
type Storage interface {
	// StoreWindowEvent records a closed window.
	StoreWindowEvent(ctx context.Context, ev *types.WindowCloseEvent) error

	// Close closes the storage connection.
	Close() error
}
