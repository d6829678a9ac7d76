// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "errors"

// package errors
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrDoubleAllocation  = errors.New("double allocation")
	ErrMissingDependency = errors.New("missing dependency")
	ErrLeakedResources   = errors.New("leaked resources")
)
