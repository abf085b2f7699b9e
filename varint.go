// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// LengthSize is the width in bytes of every length and index value in a
// module's binary form. A module starts at one byte and grows the width
// monotonically as content that needs a wider integer is added.
type LengthSize uint8

const (
	LengthSizeOne  LengthSize = 1
	LengthSizeTwo  LengthSize = 2
	LengthSizeFour LengthSize = 4
)

// Length size tag bytes as stored in the module header.
const (
	lengthSizeTagOne  uint8 = 0
	lengthSizeTagTwo  uint8 = 1
	lengthSizeTagFour uint8 = 2
)

// ErrUnsupportedIntegerSize is returned when a module cannot be encoded
// because a length or index exceeds the four byte maximum.
var ErrUnsupportedIntegerSize = errors.New("length value exceeds the maximum supported integer size")

// InvalidLengthSizeError is returned by the parser when the header carries
// an unknown length size tag.
type InvalidLengthSizeError struct {
	Value uint8
}

func (e *InvalidLengthSizeError) Error() string {
	return fmt.Sprintf("%#02X is not a valid integer length size", e.Value)
}

// Tag returns the header byte corresponding to s.
func (s LengthSize) Tag() uint8 {
	switch s {
	case LengthSizeTwo:
		return lengthSizeTagTwo
	case LengthSizeFour:
		return lengthSizeTagFour
	default:
		return lengthSizeTagOne
	}
}

// lengthSizeFromTag maps a header tag byte back to a width.
func lengthSizeFromTag(tag uint8) (LengthSize, error) {
	switch tag {
	case lengthSizeTagOne:
		return LengthSizeOne, nil
	case lengthSizeTagTwo:
		return LengthSizeTwo, nil
	case lengthSizeTagFour:
		return LengthSizeFour, nil
	default:
		return 0, &InvalidLengthSizeError{Value: tag}
	}
}

// Max returns the largest value representable at width s.
func (s LengthSize) Max() int {
	switch s {
	case LengthSizeOne:
		return math.MaxUint8
	case LengthSizeTwo:
		return math.MaxUint16
	default:
		return math.MaxUint32
	}
}

// fitLength returns the narrowest width able to hold n.
func fitLength(n int) LengthSize {
	switch {
	case n <= math.MaxUint8:
		return LengthSizeOne
	case n <= math.MaxUint16:
		return LengthSizeTwo
	default:
		return LengthSizeFour
	}
}

// ResizeToFit raises the width so that n is representable. The width never
// shrinks.
func (s *LengthSize) ResizeToFit(n int) {
	if required := fitLength(n); required > *s {
		*s = required
	}
}

// next returns the width one step up, or false when s is already the
// widest supported size.
func (s LengthSize) next() (LengthSize, bool) {
	switch s {
	case LengthSizeOne:
		return LengthSizeTwo, true
	case LengthSizeTwo:
		return LengthSizeFour, true
	default:
		return s, false
	}
}

// appendLength encodes n at width s in little-endian order. It fails when
// n does not fit, which the writer uses to retry at a wider size.
func (s LengthSize) appendLength(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > s.Max() {
		return dst, errLengthOverflow
	}
	switch s {
	case LengthSizeOne:
		return append(dst, uint8(n)), nil
	case LengthSizeTwo:
		return binary.LittleEndian.AppendUint16(dst, uint16(n)), nil
	default:
		return binary.LittleEndian.AppendUint32(dst, uint32(n)), nil
	}
}

// decodeLength reads a length value at width s from the front of data.
// The boolean result is false when data holds fewer than s bytes.
func (s LengthSize) decodeLength(data []byte) (int, int, bool) {
	if len(data) < int(s) {
		return 0, 0, false
	}
	switch s {
	case LengthSizeOne:
		return int(data[0]), 1, true
	case LengthSizeTwo:
		return int(binary.LittleEndian.Uint16(data)), 2, true
	default:
		value := binary.LittleEndian.Uint32(data)
		if uint64(value) > uint64(math.MaxInt) {
			return 0, 0, false
		}
		return int(value), 4, true
	}
}
