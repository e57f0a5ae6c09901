/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ioctlshape documents, as named constants only, the Windows PCI
// miniport ioctl surface the non-doorbell ivshmem backend would speak
// through DeviceIoControl. No driver is opened or called from this module;
// a Windows binding is explicitly out of scope (see SPEC_FULL.md's
// Non-goals). These values exist so a future Windows backend has the exact
// CTL_CODE values to target without re-deriving them from the driver
// source, and so this module's scope boundary is visible in code rather
// than only in prose.
package ioctlshape

// CTL_CODE(FILE_DEVICE_UNKNOWN, function, METHOD_BUFFERED, FILE_ANY_ACCESS)
// with FILE_DEVICE_UNKNOWN = 0x22, METHOD_BUFFERED = 0, FILE_ANY_ACCESS = 0.
const (
	RequestPeerID         = 0x222000
	RequestSize           = 0x222004
	RequestMmap           = 0x222008
	ReleaseMmap           = 0x22200c
	TriggerInterrupt      = 0x222010
	RegisterInterruptWait = 0x222014
)
