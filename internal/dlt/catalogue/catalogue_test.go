package catalogue

import (
	"errors"
	"testing"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
	"github.com/google/go-cmp/cmp"
)

func frame(id uint32, app, ctx, ecu, desc string) Frame {
	return Frame{ID: id, AppID: app, CtxID: ctx, EcuID: ecu, Type: dlt.LogInfo, PDUs: []PDU{{Description: desc}}}
}

func TestLookupFallback(t *testing.T) {
	c := New()
	f1 := frame(0, "APP1", "CTX1", "", "F1")
	f2 := frame(0, "APP1", "CTX2", "", "F2")
	if !c.Add(f1) || !c.Add(f2) {
		t.Fatalf("expected both frames to register")
	}

	got, ok := c.Lookup(0, "", "", "")
	if !ok || got.PDUs[0].Description != "F1" {
		t.Fatalf("global lookup: got %v ok=%v", got, ok)
	}
	got, ok = c.Lookup(0, "APP1", "CTX2", "")
	if !ok || got.PDUs[0].Description != "F2" {
		t.Fatalf("app/ctx lookup: got %v ok=%v", got, ok)
	}
	if _, ok := c.Lookup(1, "APP1", "CTX1", ""); ok {
		t.Fatalf("expected miss for unknown id")
	}
	got, ok = c.Lookup(0, "APP2", "CTX9", "")
	if !ok || got.PDUs[0].Description != "F1" {
		t.Fatalf("unknown app/ctx should fall back to global, got %v ok=%v", got, ok)
	}
}

func TestHalfScopedFrameUsesIDMapOnly(t *testing.T) {
	c := New()
	if !c.Add(frame(5, "APP1", "", "", "app only")) {
		t.Fatalf("expected first frame for id to register")
	}
	if c.Add(frame(5, "APP2", "", "", "other app")) {
		t.Fatalf("half scoped frame for a known id must not report a new registration")
	}
	if c.Add(frame(5, "", "CTX1", "", "ctx only")) {
		t.Fatalf("ctx only frame for a known id must not report a new registration")
	}
	got, ok := c.Lookup(5, "APP2", "CTX1", "")
	if !ok || got.PDUs[0].Description != "app only" {
		t.Fatalf("lookup: got %v ok=%v", got, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d want 1", c.Len())
	}
}

func TestDuplicateRegistration(t *testing.T) {
	c := New()
	if !c.Add(frame(5, "APP1", "CTX1", "", "first")) {
		t.Fatalf("first add failed")
	}
	if c.Add(frame(5, "APP1", "CTX1", "", "second")) {
		t.Fatalf("duplicate add succeeded")
	}
	got, _ := c.Lookup(5, "APP1", "CTX1", "")
	if got.PDUs[0].Description != "first" {
		t.Fatalf("duplicate replaced frame: %v", got)
	}
	if c.Len() != 1 || c.IDs() != 1 {
		t.Fatalf("unexpected counts len=%d ids=%d", c.Len(), c.IDs())
	}

	if !c.Add(frame(6, "", "", "", "bare")) {
		t.Fatalf("bare add failed")
	}
	if c.Add(frame(6, "", "", "", "bare again")) {
		t.Fatalf("bare duplicate succeeded")
	}
}

func TestEcuOverlay(t *testing.T) {
	c := New()
	c.Add(frame(1, "APP1", "CTX1", "", "any"))
	c.Add(frame(1, "APP1", "CTX1", "ECU1", "ecu1"))
	c.Add(frame(1, "", "", "ECU2", "ecu2"))

	cases := []struct {
		app, ctx, ecu string
		want          string
	}{
		{ecu: "ECU1", want: "ecu1"},
		{app: "APP1", ctx: "CTX1", ecu: "ECU1", want: "ecu1"},
		{app: "APP1", ctx: "CTX1", ecu: "ECU2", want: "ecu2"},
		{app: "APP1", ctx: "CTX1", ecu: "ECU3", want: "any"},
		{app: "APP1", ctx: "CTX1", want: "any"},
		{want: "any"},
	}
	for _, tc := range cases {
		got, ok := c.Lookup(1, tc.app, tc.ctx, tc.ecu)
		if !ok || got.PDUs[0].Description != tc.want {
			t.Fatalf("lookup(%q,%q,%q): got %v ok=%v want %s", tc.app, tc.ctx, tc.ecu, got, ok, tc.want)
		}
	}
	if c.Add(frame(1, "APP1", "CTX1", "ECU1", "again")) {
		t.Fatalf("duplicate ecu frame registered")
	}
}

func TestGetReportsNotFound(t *testing.T) {
	c := New()
	if _, err := c.Get(42, "A", "B", ""); !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("expected ErrFrameNotFound, got %v", err)
	}
	c.Add(frame(42, "", "", "", "x"))
	if _, err := c.Get(42, "A", "B", ""); err != nil {
		t.Fatalf("get: %v", err)
	}
}

func TestDecodeArgs(t *testing.T) {
	f := Frame{ID: 7, PDUs: []PDU{
		{Description: "Temp:"},
		{Type: "S_SINT16", Length: 2},
		{Type: "S_HEX8", Length: 1},
		{Type: "S_STRG_ASCII"},
		{Type: "S_BOOL", Length: 1},
		{Type: "X_CUSTOM", Length: 3},
	}}
	data := []byte{
		0xD3, 0xFF,
		0x2A,
		0x03, 0x00, 'h', 'i', 0x00,
		0x01,
		0xAA, 0xBB, 0xCC,
	}
	got, err := DecodeArgs(f, data, false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []args.Arg{
		args.String{Value: "Temp:", Coding: args.CodingUTF8},
		args.SignedInt{Value: -45, Width: 2},
		args.HexInt{Value: 0x2A, Width: 1},
		args.String{Value: "hi", Coding: args.CodingASCII},
		args.Bool{Value: true},
		args.NonVerbose{Data: []byte{0xAA, 0xBB, 0xCC}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeArgsBigEndian(t *testing.T) {
	f := Frame{ID: 1, PDUs: []PDU{{Type: "S_UINT32", Length: 4}}}
	got, err := DecodeArgs(f, []byte{0x00, 0x00, 0x01, 0x02}, true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]args.Arg{args.UnsignedInt{Value: 0x0102, Width: 4}}, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeArgsRequiresExactLength(t *testing.T) {
	f := Frame{ID: 1, PDUs: []PDU{{Type: "S_UINT8", Length: 1}}}
	if _, err := DecodeArgs(f, []byte{1, 2}, false); !errors.Is(err, ErrPayloadMismatch) {
		t.Fatalf("expected ErrPayloadMismatch, got %v", err)
	}
	if _, err := DecodeArgs(f, nil, false); !errors.Is(err, args.ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
