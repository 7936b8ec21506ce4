/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package randdata

import (
	"crypto/rand"
	"math/big"
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MakeRandomString returns a cryptographically random alphanumeric string of the given length.
func MakeRandomString(length uint32) ([]byte, error) {
	retval := make([]byte, length)

	for i := 0; i < int(length); i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tokenAlphabet))))
		if err != nil {
			return nil, err
		}
		retval[i] = tokenAlphabet[n.Int64()]
	}

	return retval, nil
}
