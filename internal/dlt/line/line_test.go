package line

import (
	"testing"
	"time"

	"github.com/danmuck/dltctl/internal/dlt"
	"github.com/danmuck/dltctl/internal/dlt/args"
)

func verboseLine() *TraceLine {
	l := New(Verbose{Args: []args.Arg{
		args.NewString("Temperature is:"),
		args.SignedInt{Value: 45, Width: 2},
	}})
	l.SetAppID("APP1")
	l.SetCtxID("CTX1")
	l.SetType(dlt.LogInfo)
	return l
}

func TestSettersKeepFeaturesInSync(t *testing.T) {
	l := verboseLine()
	want := dlt.FeatureAppID | dlt.FeatureCtxID | dlt.FeatureMessageType | dlt.FeatureVerbose
	if l.Features() != want {
		t.Fatalf("features = %b want %b", l.Features(), want)
	}
	l.SetSessionID(0)
	if !l.Features().Has(dlt.FeatureSessionID) {
		t.Fatalf("zero session id must still be flagged present")
	}
	l.Clear(dlt.FeatureSessionID | dlt.FeatureAppID)
	if l.Features().Has(dlt.FeatureSessionID) || l.Features().Has(dlt.FeatureAppID) || l.AppID() != "" {
		t.Fatalf("clear did not remove fields: %b %q", l.Features(), l.AppID())
	}
	l.Clear(dlt.FeatureMessageType)
	if l.Type() != dlt.Unknown {
		t.Fatalf("expected unknown type, got %v", l.Type())
	}
}

func TestStorageEcuIDLeavesFeatureClear(t *testing.T) {
	l := verboseLine()
	l.SetStorageEcuID("STOR")
	if l.EcuID() != "STOR" || l.Features().Has(dlt.FeatureEcuID) {
		t.Fatalf("storage ecu id: %q features %b", l.EcuID(), l.Features())
	}

	l = verboseLine()
	l.SetEcuID("ECU1")
	l.SetStorageEcuID("STOR")
	if l.EcuID() != "ECU1" {
		t.Fatalf("standard header ecu id overwritten: %q", l.EcuID())
	}
}

func TestTextIsCachedUntilInvalidated(t *testing.T) {
	l := verboseLine()
	if got := l.Text(); got != "Temperature is: 45" {
		t.Fatalf("unexpected text %q", got)
	}
	v := l.Payload.(Verbose)
	v.Args[1] = args.SignedInt{Value: 46, Width: 2}
	if got := l.Text(); got != "Temperature is: 45" {
		t.Fatalf("text must stay cached, got %q", got)
	}
	l.InvalidateText()
	if got := l.Text(); got != "Temperature is: 46" {
		t.Fatalf("text not recomputed, got %q", got)
	}
}

func TestExplicitTextSurvivesFieldUpdates(t *testing.T) {
	l := verboseLine()
	l.SetText("override")
	l.SetEcuID("ECU1")
	if !l.TextExplicit() || l.Text() != "override" {
		t.Fatalf("explicit text lost: %q", l.Text())
	}
	l.SetPayload(Verbose{Args: []args.Arg{args.Bool{Value: true}}})
	if l.Text() != "override" {
		t.Fatalf("explicit text lost on payload change: %q", l.Text())
	}
	l.InvalidateText()
	if l.TextExplicit() || l.Text() != "true" {
		t.Fatalf("invalidate did not reset text: %q", l.Text())
	}
}

func TestPayloadText(t *testing.T) {
	cases := []struct {
		p    Payload
		want string
	}{
		{Verbose{}, ""},
		{NonVerbose{MessageID: 10, Args: []args.Arg{args.NonVerbose{Data: []byte{'a'}}}}, "[10] a|61"},
		{NonVerbose{MessageID: 7}, "[7]"},
		{Control{}, ""},
		{Skipped{Bytes: 5, Reason: "Searching for next packet"}, "Skipped: 5 bytes; Searching for next packet"},
		{Skipped{Bytes: 3}, "Skipped: 3 bytes"},
	}
	for _, tc := range cases {
		if got := New(tc.p).Text(); got != tc.want {
			t.Fatalf("%#v: got %q want %q", tc.p, got, tc.want)
		}
	}
}

func TestString(t *testing.T) {
	l := verboseLine()
	l.Count = 0
	l.SetEcuID("ECU1")
	l.SetSessionID(50)
	l.SetTimeStamp(time.Date(2023, 5, 16, 12, 24, 22, 55_000_000, time.UTC))
	l.SetDeviceTime(1234567 * 100 * time.Microsecond)
	want := "2023/05/16 12:24:22.055000 123.4567 0 ECU1 APP1 CTX1 50 log info verbose Temperature is: 45"
	if got := l.String(); got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestBuilderMergesSkipsAndNumbersLines(t *testing.T) {
	b := NewBuilder()
	var out []*TraceLine

	first := verboseLine()
	first.Position = 0
	first.SetTimeStamp(time.Unix(100, 0).UTC())
	first.SetDeviceTime(time.Second)
	first.SetEcuID("ECU1")
	out = b.Emit(out, first)

	b.Skip(30, 2, "Searching for next packet")
	b.Skip(32, 3, "Invalid packet")
	if b.SkippedBytes() != 5 {
		t.Fatalf("expected 5 pending bytes, got %d", b.SkippedBytes())
	}
	second := verboseLine()
	second.Position = 35
	out = b.Emit(out, second)
	out = b.FlushSkipped(out)

	if len(out) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(out))
	}
	for i, l := range out {
		if l.Line != i {
			t.Fatalf("line %d numbered %d", i, l.Line)
		}
	}
	skip := out[1]
	sp, ok := skip.Payload.(Skipped)
	if !ok || sp.Bytes != 5 || sp.Reason != "Searching for next packet" {
		t.Fatalf("unexpected skip payload %#v", skip.Payload)
	}
	if skip.Position != 30 || skip.Count != InvalidCount || skip.Type() != dlt.LogWarn {
		t.Fatalf("unexpected skip line pos=%d count=%d type=%v", skip.Position, skip.Count, skip.Type())
	}
	if !skip.TimeStamp().Equal(first.TimeStamp()) || skip.DeviceTime() != time.Second {
		t.Fatalf("skip must carry last valid time stamps")
	}
	if skip.Features().Has(dlt.FeatureEcuID) || skip.Features().Has(dlt.FeatureAppID) {
		t.Fatalf("skip line must not carry identifiers: %b", skip.Features())
	}
}

func TestBuilderIgnoresEmptySkip(t *testing.T) {
	b := NewBuilder()
	b.Skip(0, 0, "nothing")
	if out := b.FlushSkipped(nil); len(out) != 0 {
		t.Fatalf("expected no line, got %d", len(out))
	}
}
