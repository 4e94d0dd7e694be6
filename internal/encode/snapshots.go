package encode

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dmarkhas/gameperf/internal/models"
)

// snapshotWire is the JSON wire form of a snapshot.
type snapshotWire struct {
	ID           uint64                `json:"id"`
	Timestamp    float64               `json:"timestamp"`
	Metrics      map[string]float64    `json:"metrics"`
	BudgetStatus []models.BudgetStatus `json:"budget_status,omitempty"`
	Context      map[string]string     `json:"context,omitempty"`
	ImageRef     string                `json:"image_ref,omitempty"`
}

func snapshotToWire(s *models.Snapshot) snapshotWire {
	return snapshotWire{
		ID:           s.ID,
		Timestamp:    toUnixSeconds(s.Timestamp),
		Metrics:      s.Metrics,
		BudgetStatus: s.BudgetStatus,
		Context:      s.Context,
		ImageRef:     s.ImageRef,
	}
}

func snapshotFromWire(w snapshotWire) models.Snapshot {
	return models.Snapshot{
		ID:           w.ID,
		Timestamp:    fromUnixSeconds(w.Timestamp),
		Metrics:      w.Metrics,
		BudgetStatus: w.BudgetStatus,
		Context:      w.Context,
		ImageRef:     w.ImageRef,
	}
}

// ExportSnapshots serializes snapshots to the requested format. JSON output
// is newline-delimited for streaming consumers.
func ExportSnapshots(snaps []models.Snapshot, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		for i := range snaps {
			if err := enc.Encode(snapshotToWire(&snaps[i])); err != nil {
				return nil, err
			}
		}
	case FormatCSV:
		if err := exportSnapshotsCSV(&buf, snaps); err != nil {
			return nil, err
		}
	case FormatBinary:
		bw := bufio.NewWriter(&buf)
		for i := range snaps {
			if err := writeSnapshotBinary(bw, &snaps[i]); err != nil {
				return nil, err
			}
		}
		if err := bw.Flush(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return buf.Bytes(), nil
}

// exportSnapshotsCSV writes one row per snapshot: timestamp plus one column
// per metric, columns being the sorted union of metric ids across snapshots.
func exportSnapshotsCSV(w io.Writer, snaps []models.Snapshot) error {
	union := map[string]bool{}
	for i := range snaps {
		for id := range snaps[i].Metrics {
			union[id] = true
		}
	}
	columns := make([]string, 0, len(union))
	for id := range union {
		columns = append(columns, id)
	}
	sort.Strings(columns)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"timestamp"}, columns...)); err != nil {
		return err
	}
	for i := range snaps {
		row := make([]string, 0, 1+len(columns))
		row = append(row, strconv.FormatFloat(toUnixSeconds(snaps[i].Timestamp), 'f', -1, 64))
		for _, col := range columns {
			row = append(row, strconv.FormatFloat(snaps[i].Metrics[col], 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeSnapshots parses serialized snapshots in JSON or binary format; used
// to validate that the binary encoding round-trips to the same JSON shape.
func DecodeSnapshots(data []byte, format Format) ([]models.Snapshot, error) {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		var out []models.Snapshot
		for {
			var w snapshotWire
			if err := dec.Decode(&w); err == io.EOF {
				return out, nil
			} else if err != nil {
				return nil, err
			}
			out = append(out, snapshotFromWire(w))
		}
	case FormatBinary:
		br := bufio.NewReader(bytes.NewReader(data))
		var out []models.Snapshot
		for {
			if _, err := br.Peek(1); err == io.EOF {
				return out, nil
			}
			s, err := readSnapshotBinary(br)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return nil, fmt.Errorf("format %q does not support decoding", format)
}

// Binary layout per snapshot, little-endian:
//
//	u64 id, f64 timestamp, u16+bytes image ref,
//	u16 metric count (u16+bytes id, f64 value, sorted by id),
//	u16 context count (u16+bytes key, u16+bytes value, sorted by key),
//	u16 status count (same status frame as the record codec).
func writeSnapshotBinary(w io.Writer, s *models.Snapshot) error {
	if err := binary.Write(w, binary.LittleEndian, s.ID); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, toUnixSeconds(s.Timestamp)); err != nil {
		return err
	}
	if err := writeString(w, s.ImageRef); err != nil {
		return err
	}

	ids := sortedKeys(s.Metrics)
	if err := writeCount(w, len(ids)); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeString(w, id); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, s.Metrics[id]); err != nil {
			return err
		}
	}

	ctxKeys := make([]string, 0, len(s.Context))
	for k := range s.Context {
		ctxKeys = append(ctxKeys, k)
	}
	sort.Strings(ctxKeys)
	if err := writeCount(w, len(ctxKeys)); err != nil {
		return err
	}
	for _, k := range ctxKeys {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, s.Context[k]); err != nil {
			return err
		}
	}

	if err := writeCount(w, len(s.BudgetStatus)); err != nil {
		return err
	}
	for _, st := range s.BudgetStatus {
		if err := writeStatusBinary(w, st); err != nil {
			return err
		}
	}
	return nil
}

func readSnapshotBinary(r io.Reader) (models.Snapshot, error) {
	var s models.Snapshot
	if err := binary.Read(r, binary.LittleEndian, &s.ID); err != nil {
		return s, err
	}
	var ts float64
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return s, err
	}
	s.Timestamp = fromUnixSeconds(ts)
	ref, err := readString(r)
	if err != nil {
		return s, err
	}
	s.ImageRef = ref

	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return s, err
	}
	s.Metrics = make(map[string]float64, n)
	for i := 0; i < int(n); i++ {
		id, err := readString(r)
		if err != nil {
			return s, err
		}
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return s, err
		}
		s.Metrics[id] = v
	}

	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return s, err
	}
	if n > 0 {
		s.Context = make(map[string]string, n)
	}
	for i := 0; i < int(n); i++ {
		k, err := readString(r)
		if err != nil {
			return s, err
		}
		v, err := readString(r)
		if err != nil {
			return s, err
		}
		s.Context[k] = v
	}

	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return s, err
	}
	for i := 0; i < int(n); i++ {
		st, err := readStatusBinary(r)
		if err != nil {
			return s, err
		}
		s.BudgetStatus = append(s.BudgetStatus, st)
	}
	return s, nil
}
