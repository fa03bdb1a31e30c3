// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package buffer

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes the content address of a (text, format) pair.
//
// # Description
//
// Pure function over content only: no timestamps or ids are folded in, so
// identical snapshots hash identically across calls and environments. The
// format is mixed into the digest with a NUL separator so that the same
// bytes in different formats address different content.
//
// # Inputs
//
//   - text: The buffer content.
//   - format: The markup family of the content.
//
// # Outputs
//
//   - string: 64-character lowercase hex SHA-256 digest.
func Hash(text string, format Format) string {
	h := sha256.New()
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
