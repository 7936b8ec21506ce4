/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package security

import (
	"github.com/dotnet/aspire-sub011/pkg/randdata"
)

// BearerTokenLength is the length of connection tokens minted for one server instance.
const BearerTokenLength = 32

// MakeBearerToken mints an opaque token used to authenticate every RPC call.
// The token is generated once per server instance and never changes afterwards.
func MakeBearerToken() (string, error) {
	b, err := randdata.MakeRandomString(BearerTokenLength)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
