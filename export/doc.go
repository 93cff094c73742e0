// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package export renders backup payloads and voter lists as CSV and reads
// voter lists back in.
package export
