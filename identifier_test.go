// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package sailar

import (
	"errors"
	"testing"
)

func TestNewIdentifier(t *testing.T) {

	tests := []struct {
		in  string
		out error
	}{
		{"main", nil},
		{"x", nil},
		{"échange", nil},
		{"", ErrEmptyIdentifier},
		{"a\x00b", ErrIdentifierInteriorNUL},
		{"\xff\xfe", ErrIdentifierNotUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, err := NewIdentifier(tt.in)
			if !errors.Is(err, tt.out) {
				t.Errorf("NewIdentifier(%q) got %v, want %v", tt.in, err, tt.out)
			}
			if tt.out == nil && id.String() != tt.in {
				t.Errorf("NewIdentifier(%q) got %q", tt.in, id)
			}
		})
	}
}

func TestIdentifierLen(t *testing.T) {
	id := MustIdentifier("é")
	if id.Len() != 2 {
		t.Errorf("Len() counts bytes, got %d, want 2", id.Len())
	}
}
