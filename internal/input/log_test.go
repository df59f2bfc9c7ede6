package input

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/tracepad/internal/model"
)

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	events := []Event{
		{T: 0, Kind: KindResize, Width: 300},
		{T: 0, Kind: KindMode, Mode: model.ModeCircular},
		{T: 5, Kind: KindPress, X: 150, Y: 45},
		{T: 21, Kind: KindMove, X: 160, Y: 45},
		{T: 30, Kind: KindRelease},
	}
	for _, e := range events {
		if err := w.Write(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !strings.Contains(buf.String(), `"kind":"press","x":150,"y":45`) {
		t.Fatalf("unexpected encoding: %s", buf.String())
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(got))
	}
	for i := range events {
		if got[i] != events[i] {
			t.Fatalf("event %d: expected %+v, got %+v", i, events[i], got[i])
		}
	}
}

func TestWriterClampsBackwardsTime(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_ = w.Write(Event{T: 10, Kind: KindPress})
	_ = w.Write(Event{T: 4, Kind: KindRelease})
	_ = w.Flush()
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[1].T != 10 {
		t.Fatalf("expected clamped time 10, got %d", got[1].T)
	}
}

func TestReadRejectsBadLines(t *testing.T) {
	cases := map[string]string{
		"bad json":   "{\"t\":1,\"kind\":\"press\"\n{oops}\n",
		"bad kind":   "{\"t\":1,\"kind\":\"hover\"}\n",
		"backwards":  "{\"t\":5,\"kind\":\"press\"}\n{\"t\":2,\"kind\":\"move\"}\n",
		"bad mode":   "{\"t\":1,\"kind\":\"mode\",\"mode\":\"spiral\"}\n",
		"bad resize": "{\"t\":1,\"kind\":\"resize\"}\n",
	}
	for name, body := range cases {
		if _, err := Read(strings.NewReader(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	got, err := Read(strings.NewReader("\n{\"t\":1,\"kind\":\"reset\"}\n\n"))
	if err != nil || len(got) != 1 {
		t.Fatalf("blank lines must be skipped: %v, %v", got, err)
	}
}

func TestCreateAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec", "session.jsonl")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.Write(Event{T: 3, Kind: KindToggle, X: 1, Y: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindToggle || got[0].Point() != (model.Point{X: 1, Y: 2}) {
		t.Fatalf("unexpected events %+v", got)
	}
}
