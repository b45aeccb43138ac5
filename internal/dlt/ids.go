package dlt

// IDLen is the size of every identifier slot (ECU, application, context).
const IDLen = 4

// PutID writes id into a 4-byte slot. Characters are masked to 7 bits, short
// identifiers are zero padded and long ones truncated.
func PutID(dst []byte, id string) {
	_ = dst[IDLen-1]
	for i := 0; i < IDLen; i++ {
		if i < len(id) {
			dst[i] = id[i] & 0x7F
		} else {
			dst[i] = 0
		}
	}
}

// ParseID reads a 4-byte slot up to the first NUL. Bytes above 0x7F are kept.
func ParseID(src []byte) string {
	n := 0
	for n < IDLen && n < len(src) && src[n] != 0 {
		n++
	}
	return string(src[:n])
}
