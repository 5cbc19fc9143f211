package store

import (
	"github.com/joshuapare/stablekit/internal/format"
	"github.com/joshuapare/stablekit/store/dirty"
)

// FileOptions configures a File store. Zero values select defaults.
type FileOptions struct {
	// PageSize is the growth granularity. Default: format.DefaultPageSize.
	PageSize uint64
	// MaxSize caps the file size in bytes; zero means unlimited.
	MaxSize uint64
	// Flush selects the durability of FlushHeader. Default: dirty.FlushAuto.
	Flush dirty.FlushMode
}

func (o FileOptions) withDefaults() FileOptions {
	if o.PageSize == 0 {
		o.PageSize = format.DefaultPageSize
	}
	return o
}
