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

// Package egon builds and validates eGON.BT0 boot images.
//
// The Allwinner F1C100S mask ROM ("BROM") loads the first sectors of the
// boot medium into SRAM and will only jump into them if they begin with a
// valid eGON.BT0 header. The header is consumed exactly once, by the BROM,
// before any code from the image runs; the runtime never re-validates its
// own header. Bytes 0x20-0x2F are reserved for the BROM, which writes
// boot-device metadata there at load time, so the image must not place code
// or data it relies on in that range. User code starts at EntryOffset.
package egon

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// Magic identifies the boot0 image format.
	Magic = "eGON.BT0"

	// HeaderSize covers the header proper plus the BROM-reserved region;
	// user code begins immediately after it.
	HeaderSize = 0x30

	// EntryOffset is where the BROM jumps after validation.
	EntryOffset = 0x30

	// SectorSize is the load granularity of the BROM; image lengths are
	// padded up to a multiple of it before the checksum is computed.
	SectorSize = 512

	// stampValue stands in for the checksum field while the checksum is
	// computed, on both the build and the validate side.
	stampValue = 0x5F0A6C39

	// HeaderVersion is the layout version written to the version field.
	HeaderVersion = 0x00010000

	magicOffset    = 0x00
	checksumOffset = 0x08
	lengthOffset   = 0x0C
	jumpOffset     = 0x10
	versionOffset  = 0x14
	reservedOffset = 0x20
	reservedLen    = 0x10
)

// Header is the parsed form of the eGON.BT0 header fields.
type Header struct {
	// Checksum is the stored word-sum over the whole padded image.
	Checksum uint32
	// Length is the declared total image length in bytes.
	Length uint32
	// JumpTarget is the address the BROM transfers control to after
	// validation.
	JumpTarget uint32
	// Version is the header layout version.
	Version uint32
	// LoaderInfo is the BROM-reserved region. It is owned by the loader:
	// only meaningful after the BROM has written it, never authored by
	// the image build.
	LoaderInfo [reservedLen]byte
}

func (h Header) String() string {
	return fmt.Sprintf("eGON.BT0 len=%d checksum=0x%08x jump=0x%08x version=0x%08x",
		h.Length, h.Checksum, h.JumpTarget, h.Version)
}

// Build produces a boot0 image: header, payload, zero padding up to a
// sector multiple, with length and checksum fields filled in over the final
// bytes. jumpTarget is the address the BROM should branch to; for an image
// loaded at the SRAM base that is the load address plus EntryOffset.
func Build(payload []byte, jumpTarget uint32) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	n := HeaderSize + len(payload)
	padded := (n + SectorSize - 1) / SectorSize * SectorSize
	if padded > 1<<24 {
		return nil, fmt.Errorf("image size %d exceeds the BROM load limit", padded)
	}

	img := make([]byte, padded)
	copy(img[magicOffset:], Magic)
	binary.LittleEndian.PutUint32(img[lengthOffset:], uint32(padded))
	binary.LittleEndian.PutUint32(img[jumpOffset:], jumpTarget)
	binary.LittleEndian.PutUint32(img[versionOffset:], HeaderVersion)
	copy(img[HeaderSize:], payload)

	binary.LittleEndian.PutUint32(img[checksumOffset:], Checksum(img))
	return img, nil
}

// Checksum computes the eGON word-sum over img: the sum of every
// little-endian 32-bit word, with the checksum field itself taken as the
// stamp value. img must already be padded to a word multiple; Build and
// Validate only ever hand it sector-aligned images.
func Checksum(img []byte) uint32 {
	var sum uint32
	for off := 0; off+4 <= len(img); off += 4 {
		w := binary.LittleEndian.Uint32(img[off:])
		if off == checksumOffset {
			w = stampValue
		}
		sum += w
	}
	return sum
}

// Parse reads the header fields from the front of an image without
// validating them.
func Parse(img []byte) (Header, error) {
	if len(img) < HeaderSize {
		return Header{}, fmt.Errorf("image of %d bytes too short for an eGON.BT0 header", len(img))
	}
	var h Header
	h.Checksum = binary.LittleEndian.Uint32(img[checksumOffset:])
	h.Length = binary.LittleEndian.Uint32(img[lengthOffset:])
	h.JumpTarget = binary.LittleEndian.Uint32(img[jumpOffset:])
	h.Version = binary.LittleEndian.Uint32(img[versionOffset:])
	copy(h.LoaderInfo[:], img[reservedOffset:reservedOffset+reservedLen])
	return h, nil
}

// Validate checks img exactly as the BROM does: magic, a sane declared
// length, and a matching word-sum. It returns the parsed header on success.
func Validate(img []byte) (Header, error) {
	h, err := Parse(img)
	if err != nil {
		return Header{}, err
	}
	if !bytes.Equal(img[magicOffset:magicOffset+len(Magic)], []byte(Magic)) {
		return Header{}, fmt.Errorf("bad magic %q", img[magicOffset:magicOffset+len(Magic)])
	}
	if h.Length%SectorSize != 0 {
		return Header{}, fmt.Errorf("declared length %d is not a %d-byte multiple", h.Length, SectorSize)
	}
	if int(h.Length) > len(img) {
		return Header{}, fmt.Errorf("declared length %d exceeds image size %d", h.Length, len(img))
	}
	if got := Checksum(img[:h.Length]); got != h.Checksum {
		return Header{}, fmt.Errorf("checksum mismatch: computed 0x%08x, stored 0x%08x", got, h.Checksum)
	}
	return h, nil
}

// SetLoaderInfo writes the BROM-reserved region of a loaded image. It
// exists for the loader side only; the checksum intentionally does not
// cover writes made after validation.
func SetLoaderInfo(img []byte, info []byte) error {
	if len(img) < HeaderSize {
		return fmt.Errorf("image of %d bytes too short for an eGON.BT0 header", len(img))
	}
	if len(info) > reservedLen {
		return fmt.Errorf("loader info of %d bytes exceeds the %d-byte reserved region", len(info), reservedLen)
	}
	copy(img[reservedOffset:reservedOffset+reservedLen], info)
	return nil
}
