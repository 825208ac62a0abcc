// Package nmea validates and composes NMEA 0183 sentence frames.
//
// A frame is a line of the form "$PAYLOAD*HH" where HH is the
// two-hex-digit XOR fold of every payload byte. The package treats a
// validated sentence as opaque text; it does not decode fields.
package nmea

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// minFrameLen is the shortest well-formed frame: "$*00".
const minFrameLen = 4

// Checksum returns the XOR fold of every byte in payload, seeded at
// zero. The payload is the text between '$' and '*', exclusive.
func Checksum(payload string) byte {
	var sum byte
	for i := 0; i < len(payload); i++ {
		sum ^= payload[i]
	}
	return sum
}

// Sentence composes a full frame for payload, with the leading '$',
// the '*' delimiter and the two-hex-digit checksum appended.
func Sentence(payload string) string {
	return fmt.Sprintf("$%s*%02X", payload, Checksum(payload))
}

// Valid reports whether line is a well-formed frame whose trailing
// checksum matches the XOR fold of its payload. Embedded CR/LF inside
// the payload are ignored. Malformed input (missing markers, short
// line, non-hex checksum, invalid text) yields false, never a panic.
// Valid is pure and safe for concurrent use.
func Valid(line string) bool {
	if len(line) < minFrameLen || !utf8.ValidString(line) {
		return false
	}

	start := strings.IndexByte(line, '$')
	end := strings.IndexByte(line, '*')
	if start < 0 || end < 0 || end < start {
		return false
	}

	// Two hex digits must follow the '*'. Partial reads routinely
	// truncate them, so length errors are an expected reject.
	if end+3 > len(line) {
		return false
	}
	want, err := strconv.ParseUint(line[end+1:end+3], 16, 8)
	if err != nil {
		return false
	}

	payload := line[start+1 : end]
	payload = strings.ReplaceAll(payload, "\r", "")
	payload = strings.ReplaceAll(payload, "\n", "")
	if strings.ContainsRune(payload, 0) {
		return false
	}

	return Checksum(payload) == byte(want)
}
