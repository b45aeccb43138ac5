package header

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
)

func TestStorageRoundTrip(t *testing.T) {
	ts := time.Date(2023, 5, 16, 12, 24, 22, 55*int(time.Millisecond), time.UTC)
	buf := make([]byte, StorageLen)
	n, err := EncodeStorage(buf, StorageFromTime(ts, "ECU1"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x44, 0x4C, 0x54, 0x01, 0xF6, 0x75, 0x63, 0x64, 0xD8, 0xD6, 0x00, 0x00, 0x45, 0x43, 0x55, 0x31}
	if n != StorageLen || !bytes.Equal(buf, want) {
		t.Fatalf("storage bytes mismatch: got=% X want=% X", buf, want)
	}
	s, n, err := DecodeStorage(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != StorageLen || s.EcuID != "ECU1" || !s.Time().Equal(ts) {
		t.Fatalf("storage mismatch: %+v time=%v", s, s.Time())
	}
}

func TestDecodeStorageErrors(t *testing.T) {
	if _, _, err := DecodeStorage(make([]byte, 15)); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
	bad := make([]byte, StorageLen)
	copy(bad, "DLX\x01")
	if _, _, err := DecodeStorage(bad); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestStandardRoundTripAllOptionalFields(t *testing.T) {
	in := Standard{
		Type:       FlagUEH | FlagMSBF | FlagWEID | FlagWSID | FlagWTMS,
		Counter:    200,
		Length:     36,
		EcuID:      "ECU1",
		SessionID:  0x01020304,
		DeviceTime: 12310,
	}
	buf := make([]byte, 16)
	n, err := EncodeStandard(buf, in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n != 16 {
		t.Fatalf("expected 16 bytes, got %d", n)
	}
	if buf[0] != 0x3F {
		t.Fatalf("unexpected htyp 0x%02X", buf[0])
	}
	out, m, err := DecodeStandard(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	in.Type |= Version1
	if m != n || out != in {
		t.Fatalf("standard mismatch: got=%+v want=%+v", out, in)
	}
}

func TestEncodeStandardShortBuffer(t *testing.T) {
	h := Standard{Type: FlagWEID | FlagWTMS, EcuID: "ECU1"}
	if _, err := EncodeStandard(make([]byte, 11), h); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}

func TestPeekStandardRejects(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{name: "short", in: []byte{0x21, 0x00, 0x00}, want: ErrShortBuffer},
		{name: "version2", in: []byte{0x41, 0x00, 0x00, 0x20}, want: ErrUnsupportedVersion},
		{name: "length below extended header", in: []byte{0x21, 0x00, 0x00, 0x0D}, want: ErrInvalidLength},
		{name: "length below ecu id", in: []byte{0x24, 0x00, 0x00, 0x07}, want: ErrInvalidLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PeekStandard(tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	n, err := PeekStandard([]byte{0x21, 0x00, 0x00, 0x2A})
	if err != nil || n != 42 {
		t.Fatalf("expected length 42, got %d err=%v", n, err)
	}
}

func TestExtendedRoundTrip(t *testing.T) {
	in := NewExtended(dlt.LogInfo, true, 2, "APP1", "CTX1")
	buf := make([]byte, ExtendedLen)
	if _, err := EncodeExtended(buf, in); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0x41, 0x02, 0x41, 0x50, 0x50, 0x31, 0x43, 0x54, 0x58, 0x31}
	if !bytes.Equal(buf, want) {
		t.Fatalf("extended bytes mismatch: % X", buf)
	}
	out, _, err := DecodeExtended(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in || !out.Verbose() || out.MessageType() != dlt.LogInfo {
		t.Fatalf("extended mismatch: %+v", out)
	}
}

func TestIdentifierSlots(t *testing.T) {
	buf := make([]byte, 4)
	dlt.PutID(buf, "AP")
	if !bytes.Equal(buf, []byte{'A', 'P', 0, 0}) {
		t.Fatalf("padding mismatch: % X", buf)
	}
	dlt.PutID(buf, "CONTEXT")
	if string(buf) != "CONT" {
		t.Fatalf("truncation mismatch: %q", buf)
	}
	dlt.PutID(buf, "\xC1BC")
	if buf[0] != 0x41 {
		t.Fatalf("expected high bit cleared, got 0x%02X", buf[0])
	}
	if got := dlt.ParseID([]byte{0xC1, 'B', 0, 0}); got != "\xC1B" {
		t.Fatalf("decode should keep high bytes: %q", got)
	}
}
