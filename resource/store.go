// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "github.com/devblok/korures/asset"

// Store is the asset database used by the Load methods.
// Both methods fail with an error wrapping ErrAssetNotFound
// when the hash is unknown.
type Store interface {
	// FetchBlob returns the encoded payload of an asset.
	FetchBlob(id asset.Hash) ([]byte, error)
	// FetchDependencies returns the direct dependencies of an asset.
	FetchDependencies(id asset.Hash) (asset.DependencyRecord, error)
}
