// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentims

import "context"

// MetadataProvider produces the frame descriptor table for an
// acquisition's .tdf metadata file. The default implementation
// (opentimssql.SQLiteMetadataProvider) reads it via database/sql; tests
// and other callers can supply their own to avoid needing a real
// acquisition on disk.
//
// Implementations are expected to be stateless with respect to tdfPath:
// each call opens, queries, and closes its own connection, so a single
// MetadataProvider value can be reused across handles.
type MetadataProvider interface {
	// FrameDescriptors returns one FrameDescriptor per frame recorded at
	// tdfPath, in no particular order; the engine sorts and indexes them.
	FrameDescriptors(ctx context.Context, tdfPath string) ([]FrameDescriptor, error)
}

// defaultMetadataProviderFactory backs Open's zero-configuration default.
// opentimssql (a separate module-internal package that imports this one
// to implement MetadataProvider) cannot be imported back from here
// without a cycle, so it installs itself through this registration hook
// from its own init, the same way database/sql drivers register
// themselves with a blank import rather than being wired in by
// database/sql itself.
var defaultMetadataProviderFactory func() MetadataProvider

// RegisterDefaultMetadataProvider installs the constructor Open uses when
// no WithMetadataProvider option is given. Intended to be called from an
// init function in a MetadataProvider implementation's package.
func RegisterDefaultMetadataProvider(f func() MetadataProvider) {
	defaultMetadataProviderFactory = f
}
