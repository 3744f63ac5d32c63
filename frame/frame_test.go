package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/preload/types"
)

// encodeFrame encodes a payload with length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func sampleRecord(name string) *types.ArchiveRecord {
	return &types.ArchiveRecord{
		ContractVersion: types.Version,
		RunID:           "run-001",
		Name:            name,
		Kind:            types.RecordKindLoaded,
		Loader:          types.LoaderPrimary,
		Location:        "/lib/app.jar!a/b/C.class",
		SuperName:       "java.lang.Object",
		InterfaceCount:  2,
		MajorVersion:    61,
		SizeBytes:       512,
		Digest:          "sha256:abc",
		Timestamp:       "2024-01-15T10:00:00Z",
	}
}

func TestEncoder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	names := []string{"a.b.C", "a.b.C$D", "x.Y"}
	for _, n := range names {
		if err := enc.Encode(sampleRecord(n)); err != nil {
			t.Fatalf("Encode(%s): %v", n, err)
		}
	}

	dec := NewDecoder(&buf)
	for _, want := range names {
		rec, err := dec.Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if rec.Name != want {
			t.Errorf("Name = %q, want %q", rec.Name, want)
		}
		if rec.Loader != types.LoaderPrimary || rec.MajorVersion != 61 || rec.InterfaceCount != 2 {
			t.Errorf("fields lost in round trip: %+v", rec)
		}
	}
	if _, err := dec.Decode(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestReadAll(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, n := range []string{"a", "b"} {
		if err := enc.Encode(sampleRecord(n)); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "a" || recs[1].Name != "b" {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestReadAll_TruncatedTail(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, n := range []string{"a", "b"} {
		if err := enc.Encode(sampleRecord(n)); err != nil {
			t.Fatal(err)
		}
	}
	data := buf.Bytes()[:buf.Len()-3]

	recs, err := ReadAll(bytes.NewReader(data))
	if !IsFatalFrameError(err) {
		t.Fatalf("expected fatal frame error, got %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record before the error, got %d", len(recs))
	}
}

func TestDecoder_PartialFrame(t *testing.T) {
	payload, err := msgpack.Marshal(sampleRecord("a.b.C"))
	if err != nil {
		t.Fatal(err)
	}
	frame := encodeFrame(payload)

	// Keep only length prefix + half payload.
	truncated := frame[:LengthPrefixSize+len(payload)/2]

	_, err = NewDecoder(bytes.NewReader(truncated)).ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want partial", frameErr.Kind)
	}
	if !frameErr.IsFatal() {
		t.Error("partial frame should be fatal")
	}
}

func TestDecoder_OversizedFrame(t *testing.T) {
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], MaxPayloadSize+1)

	_, err := NewDecoder(bytes.NewReader(prefix[:])).ReadFrame()
	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorTooLarge {
		t.Fatalf("expected too_large frame error, got %v", err)
	}
}

func TestEncoder_OversizedPayload(t *testing.T) {
	err := NewEncoder(io.Discard).WriteFrame(make([]byte, MaxPayloadSize+1))
	var frameErr *FrameError
	if !errors.As(err, &frameErr) || frameErr.Kind != FrameErrorTooLarge {
		t.Fatalf("expected too_large frame error, got %v", err)
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader(nil)).ReadFrame()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestDecoder_TruncatedLengthPrefix(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader([]byte{0x00, 0x01})).ReadFrame()
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected wrapped io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecoder_MalformedMsgpack(t *testing.T) {
	frame := encodeFrame([]byte{0xc1}) // never-used msgpack byte

	_, err := NewDecoder(bytes.NewReader(frame)).Decode()
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T (%v)", err, err)
	}
	if frameErr.Kind != FrameErrorDecode {
		t.Errorf("Kind = %v, want decode", frameErr.Kind)
	}
	if frameErr.IsFatal() {
		t.Error("decode errors are not fatal: the stream stays in sync")
	}
}

func TestFrameError_Message(t *testing.T) {
	tests := []struct {
		err  *FrameError
		want string
	}{
		{&FrameError{Kind: FrameErrorPartial, Msg: "short read"}, "short read"},
		{&FrameError{Kind: FrameErrorDecode, Msg: "bad", Err: errors.New("boom")}, "bad: boom"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
	if FrameErrorTooLarge.String() != "too_large" {
		t.Errorf("String() = %q", FrameErrorTooLarge.String())
	}
}

func TestIsFatalFrameError_NonFrameError(t *testing.T) {
	if IsFatalFrameError(errors.New("plain")) {
		t.Error("plain error should not be a fatal frame error")
	}
}
