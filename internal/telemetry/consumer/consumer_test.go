package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/record"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

type fakeReceiver struct {
	records []*record.Record
	i       int
}

func (f *fakeReceiver) ReceiveRecord() (*record.Record, error) {
	if f.i >= len(f.records) {
		return nil, errors.New("absent")
	}
	r := f.records[f.i]
	f.i++
	return r, nil
}

func (f *fakeReceiver) IsAbsence(err error) bool { return err != nil && err.Error() == "absent" }
func (f *fakeReceiver) Close() error             { return nil }

func TestLoopStartWaitEmitsZero(t *testing.T) {
	r := record.New()
	r.Set(schema.Speed, 42)
	recv := &fakeReceiver{records: []*record.Record{r}}

	var got TelemetryInfo
	loop := NewLoop(recv, func(info TelemetryInfo) { got = info })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	loop.Run(ctx)

	if got.Get("speed") != 0 {
		t.Fatalf("expected zeroed speed during start-wait, got %v", got.Get("speed"))
	}
}

func TestFromRecordCoversAllFields(t *testing.T) {
	r := record.New()
	r.Set(schema.Speed, 7)
	info := fromRecord(r)
	if info.Len() != schema.NumKeys {
		t.Fatalf("expected %d fields, got %d", schema.NumKeys, info.Len())
	}
	if info.Get("speed") != 7 {
		t.Fatalf("expected speed 7, got %v", info.Get("speed"))
	}
	if info.RawRecord() != r {
		t.Fatal("expected RawRecord to return the source record")
	}
}
