// Package geo provides coarse location encoding for feed responses.
// Exact coordinates never leave the server; clients receive geohash
// cells rounded to a display precision.
package geo

import "strings"

// DefaultPrecision is the geohash length used for public display.
// Six characters is roughly a 1.2km x 0.6km cell, coarse enough not to
// pinpoint a venue.
const DefaultPrecision = 6

// base32 is the geohash alphabet. It excludes 'a', 'i', 'l', and 'o'.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

var validGeohashChars = func() map[rune]bool {
	valid := make(map[rune]bool, len(base32))
	for _, c := range base32 {
		valid[c] = true
	}
	return valid
}()

// Encode converts a latitude and longitude in degrees into a geohash of
// the given length. A precision below 1 falls back to DefaultPrecision.
func Encode(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = DefaultPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	var geohash strings.Builder
	geohash.Grow(precision)

	bits := 0
	var ch uint

	// Geohash interleaves longitude and latitude bisections, emitting a
	// base32 character per five bits.
	even := true
	for geohash.Len() < precision {
		if even {
			mid := (lngRange[0] + lngRange[1]) / 2
			if lng > mid {
				ch |= (1 << (4 - bits))
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= (1 << (4 - bits))
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		even = !even
		bits++

		if bits == 5 {
			geohash.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return geohash.String()
}

// RoundGeohash truncates a geohash to the given precision, normalizing
// to lowercase. Returns "" for empty input, invalid characters, or a
// precision below 1. Input already at or below the precision is
// returned unchanged apart from case.
func RoundGeohash(input string, precision int) string {
	if input == "" || precision < 1 {
		return ""
	}

	lower := strings.ToLower(input)
	for _, c := range lower {
		if !validGeohashChars[c] {
			return ""
		}
	}

	if len(lower) <= precision {
		return lower
	}
	return lower[:precision]
}
