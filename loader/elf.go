// Package loader reads the simulator's plain-text program image format into
// a byte-addressed memory image.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Image is a loaded program: a sparse set of bytes at their target
// addresses, ready to be copied into emu.Memory.
type Image struct {
	// Bytes maps address to byte value, exactly as parsed from the image.
	Bytes map[uint32]byte
}

// Load parses the text program-image format: a stream of lines where a line
// beginning with '@' sets the current load address (the rest of the line is
// a hexadecimal address), and any other non-blank line is a whitespace
// separated sequence of two-digit hexadecimal byte values written starting
// at the current address, which then advances past them. The first blank
// line ends parsing; anything after it is ignored.
func Load(r io.Reader) (*Image, error) {
	img := &Image{Bytes: make(map[uint32]byte)}

	scanner := bufio.NewScanner(r)
	var addr uint32
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}

		if strings.HasPrefix(line, "@") {
			parsed, err := strconv.ParseUint(strings.TrimSpace(line[1:]), 16, 32)
			if err != nil {
				return nil, fmt.Errorf("loader: invalid address directive %q: %w", line, err)
			}
			addr = uint32(parsed)
			continue
		}

		for _, tok := range strings.Fields(line) {
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("loader: invalid byte %q: %w", tok, err)
			}
			img.Bytes[addr] = byte(b)
			addr++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: reading image: %w", err)
	}

	return img, nil
}
