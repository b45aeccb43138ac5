// Package header encodes and decodes the storage, standard and extended DLT
// headers.
package header

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
)

const (
	StorageLen       = 16
	StandardFixedLen = 4
	ExtendedLen      = 10

	// MaxMessageLen bounds the standard header length field.
	MaxMessageLen = 0xFFFF
)

// Standard header type (HTYP) bits.
const (
	FlagUEH  uint8 = 0x01
	FlagMSBF uint8 = 0x02
	FlagWEID uint8 = 0x04
	FlagWSID uint8 = 0x08
	FlagWTMS uint8 = 0x10

	VersionMask  uint8 = 0xE0
	VersionShift       = 5
	Version1     uint8 = 0x20
)

// Message info (MSIN) bits.
const (
	InfoVerbose uint8 = 0x01
)

// DeviceTick is the resolution of the standard header time stamp.
const DeviceTick = 100 * time.Microsecond

var (
	StorageMagic = [4]byte{'D', 'L', 'T', 0x01}
	SerialMagic  = [4]byte{'D', 'L', 'S', 0x01}
)

var (
	ErrShortBuffer        = errors.New("header: buffer too short")
	ErrInvalidMagic       = errors.New("header: invalid magic")
	ErrUnsupportedVersion = errors.New("header: unsupported version")
	ErrInvalidLength      = errors.New("header: length smaller than headers")
	ErrTooLarge           = errors.New("header: message exceeds 65535 bytes")
)

// Storage is the 16-byte header prefixed to records in files at rest. All its
// integer fields are little-endian.
type Storage struct {
	Seconds      uint32
	Microseconds uint32
	EcuID        string
}

// Time returns the storage time stamp in UTC.
func (s Storage) Time() time.Time {
	return time.Unix(int64(s.Seconds), int64(s.Microseconds)*int64(time.Microsecond)).UTC()
}

// StorageFromTime splits t into storage seconds and microseconds.
func StorageFromTime(t time.Time, ecuID string) Storage {
	if t.IsZero() {
		return Storage{EcuID: ecuID}
	}
	u := t.UTC()
	return Storage{
		Seconds:      uint32(u.Unix()),
		Microseconds: uint32(u.Nanosecond() / int(time.Microsecond)),
		EcuID:        ecuID,
	}
}

func EncodeStorage(dst []byte, s Storage) (int, error) {
	if len(dst) < StorageLen {
		return 0, ErrShortBuffer
	}
	copy(dst[0:4], StorageMagic[:])
	binary.LittleEndian.PutUint32(dst[4:8], s.Seconds)
	binary.LittleEndian.PutUint32(dst[8:12], s.Microseconds)
	dlt.PutID(dst[12:16], s.EcuID)
	return StorageLen, nil
}

func DecodeStorage(b []byte) (Storage, int, error) {
	if len(b) < StorageLen {
		return Storage{}, 0, ErrShortBuffer
	}
	if [4]byte(b[0:4]) != StorageMagic {
		return Storage{}, 0, ErrInvalidMagic
	}
	return Storage{
		Seconds:      binary.LittleEndian.Uint32(b[4:8]),
		Microseconds: binary.LittleEndian.Uint32(b[8:12]),
		EcuID:        dlt.ParseID(b[12:16]),
	}, StorageLen, nil
}

// Standard is the standard header. Optional fields are only meaningful when
// the matching flag is set in Type.
type Standard struct {
	Type       uint8
	Counter    uint8
	Length     uint16
	EcuID      string
	SessionID  uint32
	DeviceTime uint32
}

func (h Standard) Version() uint8      { return h.Type & VersionMask }
func (h Standard) HasExtended() bool   { return h.Type&FlagUEH != 0 }
func (h Standard) BigEndian() bool     { return h.Type&FlagMSBF != 0 }
func (h Standard) HasEcuID() bool      { return h.Type&FlagWEID != 0 }
func (h Standard) HasSessionID() bool  { return h.Type&FlagWSID != 0 }
func (h Standard) HasDeviceTime() bool { return h.Type&FlagWTMS != 0 }

// Size is the encoded size of the standard header including optional fields.
func (h Standard) Size() int {
	return StandardSize(h.Type)
}

// StandardSize returns the standard header size implied by the HTYP byte.
func StandardSize(htyp uint8) int {
	n := StandardFixedLen
	if htyp&FlagWEID != 0 {
		n += 4
	}
	if htyp&FlagWSID != 0 {
		n += 4
	}
	if htyp&FlagWTMS != 0 {
		n += 4
	}
	return n
}

// MinLength is the smallest plausible value of the length field for htyp.
func MinLength(htyp uint8) int {
	n := StandardSize(htyp)
	if htyp&FlagUEH != 0 {
		n += ExtendedLen
	}
	return n
}

// PeekStandard validates the fixed part of a standard header and returns the
// record length it announces. Only the first four bytes are read.
func PeekStandard(b []byte) (int, error) {
	if len(b) < StandardFixedLen {
		return 0, ErrShortBuffer
	}
	if b[0]&VersionMask != Version1 {
		return 0, ErrUnsupportedVersion
	}
	length := int(binary.BigEndian.Uint16(b[2:4]))
	if length < MinLength(b[0]) {
		return 0, ErrInvalidLength
	}
	return length, nil
}

func DecodeStandard(b []byte) (Standard, int, error) {
	length, err := PeekStandard(b)
	if err != nil {
		return Standard{}, 0, err
	}
	h := Standard{Type: b[0], Counter: b[1], Length: uint16(length)}
	size := h.Size()
	if len(b) < size {
		return Standard{}, 0, ErrShortBuffer
	}
	off := StandardFixedLen
	if h.HasEcuID() {
		h.EcuID = dlt.ParseID(b[off : off+4])
		off += 4
	}
	if h.HasSessionID() {
		h.SessionID = binary.BigEndian.Uint32(b[off : off+4])
		off += 4
	}
	if h.HasDeviceTime() {
		h.DeviceTime = binary.BigEndian.Uint32(b[off : off+4])
		off += 4
	}
	return h, off, nil
}

// EncodeStandard writes h. The version bits are forced to version 1.
func EncodeStandard(dst []byte, h Standard) (int, error) {
	htyp := h.Type&^VersionMask | Version1
	size := StandardSize(htyp)
	if len(dst) < size {
		return 0, ErrShortBuffer
	}
	dst[0] = htyp
	dst[1] = h.Counter
	binary.BigEndian.PutUint16(dst[2:4], h.Length)
	off := StandardFixedLen
	if htyp&FlagWEID != 0 {
		dlt.PutID(dst[off:off+4], h.EcuID)
		off += 4
	}
	if htyp&FlagWSID != 0 {
		binary.BigEndian.PutUint32(dst[off:off+4], h.SessionID)
		off += 4
	}
	if htyp&FlagWTMS != 0 {
		binary.BigEndian.PutUint32(dst[off:off+4], h.DeviceTime)
		off += 4
	}
	return off, nil
}

// PutLength patches the length field of an already encoded standard header.
func PutLength(std []byte, length int) error {
	if length > MaxMessageLen {
		return ErrTooLarge
	}
	if len(std) < StandardFixedLen {
		return ErrShortBuffer
	}
	binary.BigEndian.PutUint16(std[2:4], uint16(length))
	return nil
}

// Extended is the 10-byte extended header.
type Extended struct {
	Info  uint8
	Args  uint8
	AppID string
	CtxID string
}

func (h Extended) Verbose() bool { return h.Info&InfoVerbose != 0 }

func (h Extended) MessageType() dlt.MessageType {
	return dlt.MessageType(h.Info & dlt.InfoMask)
}

// NewExtended builds the message-info byte from a type and verbose flag.
func NewExtended(t dlt.MessageType, verbose bool, args uint8, appID, ctxID string) Extended {
	info := uint8(t) & dlt.InfoMask
	if verbose {
		info |= InfoVerbose
	}
	return Extended{Info: info, Args: args, AppID: appID, CtxID: ctxID}
}

func EncodeExtended(dst []byte, h Extended) (int, error) {
	if len(dst) < ExtendedLen {
		return 0, ErrShortBuffer
	}
	dst[0] = h.Info
	dst[1] = h.Args
	dlt.PutID(dst[2:6], h.AppID)
	dlt.PutID(dst[6:10], h.CtxID)
	return ExtendedLen, nil
}

func DecodeExtended(b []byte) (Extended, int, error) {
	if len(b) < ExtendedLen {
		return Extended{}, 0, ErrShortBuffer
	}
	return Extended{
		Info:  b[0],
		Args:  b[1],
		AppID: dlt.ParseID(b[2:6]),
		CtxID: dlt.ParseID(b[6:10]),
	}, ExtendedLen, nil
}
