// Copyright 2026 The arm9 Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rom

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apeng2012/arm9/egon"
)

// imagePath is where a device keeps its boot0 image within its storage.
const imagePath = "boot0.bin"

// Device is a fake boot medium using the local filesystem for storage. The
// flashing tool writes it, the mask-ROM emulation reads it back.
type Device struct {
	storage string
}

// NewDevice returns a device backed by the given storage directory.
func NewDevice(storage string) (*Device, error) {
	dStat, err := os.Stat(storage)
	if err != nil {
		return nil, fmt.Errorf("unable to stat device storage dir %q: %w", storage, err)
	}
	if !dStat.Mode().IsDir() {
		return nil, fmt.Errorf("device storage %q is not a directory", storage)
	}
	return &Device{storage: storage}, nil
}

// ApplyImage flashes a boot0 image onto the device. The image is validated
// first: a device carrying an image its BROM would reject is a brick, so
// the write refuses to create one.
func (d *Device) ApplyImage(img []byte) error {
	if _, err := egon.Validate(img); err != nil {
		return fmt.Errorf("refusing to flash an unbootable image: %w", err)
	}
	p := filepath.Join(d.storage, imagePath)
	if err := os.WriteFile(p, img, 0o644); err != nil {
		return fmt.Errorf("failed to write boot image to %q: %w", p, err)
	}
	return nil
}

// ReadImage returns the raw boot0 image stored on the device.
func (d *Device) ReadImage() ([]byte, error) {
	p := filepath.Clean(filepath.Join(d.storage, imagePath))
	img, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read boot image %q: %w", p, err)
	}
	return img, nil
}
