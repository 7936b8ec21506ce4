/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package osutil

import "os"

const (
	PermissionOwnerReadWriteOthersRead  os.FileMode = 0644
	PermissionOnlyOwnerReadWrite        os.FileMode = 0600
	PermissionOnlyOwnerReadWriteExecute os.FileMode = 0700
)
