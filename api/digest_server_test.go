package api

import (
	"bytes"
	"encoding/hex"
	"net"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/tablehash/TableHash-Engine/digest"
	"github.com/tablehash/TableHash-Engine/hasher"
)

func sampleRecord(t *testing.T) arrow.Record {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()
	rb.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2, 3}, nil)
	rb.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "", "c"}, []bool{true, false, true})
	return rb.NewRecord()
}

func ipcBytes(t *testing.T, rec arrow.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()))
	if err := w.Write(rec); err != nil {
		t.Fatalf("ipc write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("ipc close: %v", err)
	}
	return buf.Bytes()
}

func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("digest me")
	if err := WriteMessage(&buf, payload); err != nil {
		t.Fatal(err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mangled payload: %q", got)
	}
}

func TestReadMessageRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := ReadMessage(&buf); err == nil {
		t.Error("expected oversize message to be rejected")
	}
}

func TestHandlerDigestsStream(t *testing.T) {
	rec := sampleRecord(t)
	defer rec.Release()

	want, err := digest.DigestRecord(rec, hasher.SHA3_256)
	if err != nil {
		t.Fatal(err)
	}

	h := NewDigestHandler(hasher.SHA3_256)
	resp, err := h.ProcessRequest(ipcBytes(t, rec))
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != hex.EncodeToString(want) {
		t.Errorf("handler returned %s, want %s", resp, hex.EncodeToString(want))
	}
}

func TestHandlerRejectsGarbage(t *testing.T) {
	h := NewDigestHandler(hasher.SHA3_256)
	if _, err := h.ProcessRequest([]byte("not an ipc stream")); err == nil {
		t.Error("expected garbage payload to fail")
	}
	if _, err := h.ProcessRequest(nil); err == nil {
		t.Error("expected empty payload to fail")
	}
}

func TestServerEndToEnd(t *testing.T) {
	rec := sampleRecord(t)
	defer rec.Release()

	srv := NewDigestServer(NewDigestHandler(hasher.SHA3_256))
	if err := srv.StartAsync("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := WriteMessage(conn, ipcBytes(t, rec)); err != nil {
		t.Fatal(err)
	}
	resp, err := ReadMessage(conn)
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(string(resp), "ERR:") {
		t.Fatalf("server replied with error: %s", resp)
	}

	want, err := digest.DigestRecord(rec, hasher.SHA3_256)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp) != hex.EncodeToString(want) {
		t.Errorf("server returned %s, want %s", resp, hex.EncodeToString(want))
	}
}
