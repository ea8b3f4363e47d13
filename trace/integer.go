package trace

import "strconv"

// parseIntegerLiteral parses a decimal / 0x / 0b / 0o integer literal into a uint64
// machine word. It accepts exactly the digit run already isolated by the lexer's
// readNumber (see lexer.go); a bare prefix with no following digit, or a literal that
// overflows 64 bits, is reported as an error by the caller.
func parseIntegerLiteral(lit string) (uint64, error) {
	if len(lit) >= 2 && lit[0] == '0' {
		switch lit[1] {
		case 'x', 'X':
			return strconv.ParseUint(lit[2:], 16, 64)
		case 'b', 'B':
			return strconv.ParseUint(lit[2:], 2, 64)
		case 'o', 'O':
			return strconv.ParseUint(lit[2:], 8, 64)
		}
	}
	return strconv.ParseUint(lit, 10, 64)
}
