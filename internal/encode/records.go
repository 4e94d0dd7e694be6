package encode

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/dmarkhas/gameperf/internal/models"
)

// recordWire is the JSON wire form of a log record. Timestamps are float64
// seconds; the in-memory time.Time never crosses the wire.
type recordWire struct {
	Timestamp    float64               `json:"timestamp"`
	Kind         models.RecordKind     `json:"kind"`
	Metrics      map[string]float64    `json:"metrics,omitempty"`
	BudgetStatus []models.BudgetStatus `json:"budget_status,omitempty"`
	Message      string                `json:"message,omitempty"`
}

func toWire(rec *models.LogRecord) recordWire {
	return recordWire{
		Timestamp:    toUnixSeconds(rec.Timestamp),
		Kind:         rec.Kind,
		Metrics:      rec.Metrics,
		BudgetStatus: rec.BudgetStatus,
		Message:      rec.Message,
	}
}

func fromWire(w recordWire) models.LogRecord {
	return models.LogRecord{
		Timestamp:    fromUnixSeconds(w.Timestamp),
		Kind:         w.Kind,
		Metrics:      w.Metrics,
		BudgetStatus: w.BudgetStatus,
		Message:      w.Message,
	}
}

// RecordEncoder writes log records to an underlying stream one at a time.
// Reset repoints the encoder at a fresh stream after log rotation.
type RecordEncoder interface {
	Encode(rec *models.LogRecord) error
	Reset(w io.Writer)
}

// NewRecordEncoder creates a streaming encoder for the given format.
func NewRecordEncoder(format Format, w io.Writer) RecordEncoder {
	switch format {
	case FormatCSV:
		return &csvRecordEncoder{w: w}
	case FormatBinary:
		return &binaryRecordEncoder{w: w}
	default:
		return &jsonRecordEncoder{enc: json.NewEncoder(w)}
	}
}

type jsonRecordEncoder struct {
	enc *json.Encoder
}

func (e *jsonRecordEncoder) Encode(rec *models.LogRecord) error {
	return e.enc.Encode(toWire(rec))
}

func (e *jsonRecordEncoder) Reset(w io.Writer) {
	e.enc = json.NewEncoder(w)
}

// csvRecordEncoder emits one row per record: timestamp followed by one column
// per metric. Columns are fixed by the first record written to the stream; a
// header row is emitted before the first record after every Reset.
type csvRecordEncoder struct {
	w       io.Writer
	cw      *csv.Writer
	columns []string
}

func (e *csvRecordEncoder) Encode(rec *models.LogRecord) error {
	if e.cw == nil {
		e.cw = csv.NewWriter(e.w)
		e.columns = sortedKeys(rec.Metrics)
		header := append([]string{"timestamp"}, e.columns...)
		if err := e.cw.Write(header); err != nil {
			return err
		}
	}
	row := make([]string, 0, 1+len(e.columns))
	row = append(row, strconv.FormatFloat(toUnixSeconds(rec.Timestamp), 'f', -1, 64))
	for _, col := range e.columns {
		row = append(row, strconv.FormatFloat(rec.Metrics[col], 'f', -1, 64))
	}
	if err := e.cw.Write(row); err != nil {
		return err
	}
	e.cw.Flush()
	return e.cw.Error()
}

func (e *csvRecordEncoder) Reset(w io.Writer) {
	e.w = w
	e.cw = nil
	e.columns = nil
}

// Binary layout, little-endian, one frame per record:
//
//	u8   kind
//	f64  timestamp (unix seconds)
//	u16  message length, message bytes
//	u16  metric count, then per metric: u16 id length, id bytes, f64 value
//	u16  status count, then per status: u16+bytes subsystem, u16+bytes metric
//	     id, f64 actual, f64 allotted, f64 percentage, u8 level
//
// Metrics are written in sorted id order so encoding is deterministic.
type binaryRecordEncoder struct {
	w io.Writer
}

func (e *binaryRecordEncoder) Encode(rec *models.LogRecord) error {
	bw := bufio.NewWriter(e.w)
	if err := writeRecordBinary(bw, rec); err != nil {
		return err
	}
	return bw.Flush()
}

func (e *binaryRecordEncoder) Reset(w io.Writer) {
	e.w = w
}

func writeRecordBinary(w io.Writer, rec *models.LogRecord) error {
	if err := binary.Write(w, binary.LittleEndian, kindByte(rec.Kind)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, toUnixSeconds(rec.Timestamp)); err != nil {
		return err
	}
	if err := writeString(w, rec.Message); err != nil {
		return err
	}
	ids := sortedKeys(rec.Metrics)
	if err := writeCount(w, len(ids)); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeString(w, id); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, rec.Metrics[id]); err != nil {
			return err
		}
	}
	if err := writeCount(w, len(rec.BudgetStatus)); err != nil {
		return err
	}
	for _, s := range rec.BudgetStatus {
		if err := writeStatusBinary(w, s); err != nil {
			return err
		}
	}
	return nil
}

func writeStatusBinary(w io.Writer, s models.BudgetStatus) error {
	if err := writeString(w, s.Subsystem); err != nil {
		return err
	}
	if err := writeString(w, s.MetricID); err != nil {
		return err
	}
	for _, f := range []float64{s.ActualMs, s.AllottedMs, s.Percentage} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, uint8(s.Level))
}

// DecodeRecords parses a whole stream previously produced by a RecordEncoder
// in JSON or binary format. CSV is write-only: it is a lossy tabular
// projection and cannot reconstruct records.
func DecodeRecords(r io.Reader, format Format) ([]models.LogRecord, error) {
	switch format {
	case FormatJSON:
		return decodeRecordsJSON(r)
	case FormatBinary:
		return decodeRecordsBinary(r)
	}
	return nil, fmt.Errorf("format %q does not support decoding", format)
}

func decodeRecordsJSON(r io.Reader) ([]models.LogRecord, error) {
	dec := json.NewDecoder(r)
	var out []models.LogRecord
	for {
		var w recordWire
		if err := dec.Decode(&w); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, err
		}
		out = append(out, fromWire(w))
	}
}

func decodeRecordsBinary(r io.Reader) ([]models.LogRecord, error) {
	br := bufio.NewReader(r)
	var out []models.LogRecord
	for {
		if _, err := br.Peek(1); err == io.EOF {
			return out, nil
		}
		rec, err := readRecordBinary(br)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

func readRecordBinary(r io.Reader) (models.LogRecord, error) {
	var rec models.LogRecord
	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return rec, err
	}
	rec.Kind = kindFromByte(kind)
	var ts float64
	if err := binary.Read(r, binary.LittleEndian, &ts); err != nil {
		return rec, err
	}
	rec.Timestamp = fromUnixSeconds(ts)
	msg, err := readString(r)
	if err != nil {
		return rec, err
	}
	rec.Message = msg

	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return rec, err
	}
	if n > 0 {
		rec.Metrics = make(map[string]float64, n)
	}
	for i := 0; i < int(n); i++ {
		id, err := readString(r)
		if err != nil {
			return rec, err
		}
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return rec, err
		}
		rec.Metrics[id] = v
	}

	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return rec, err
	}
	for i := 0; i < int(n); i++ {
		s, err := readStatusBinary(r)
		if err != nil {
			return rec, err
		}
		rec.BudgetStatus = append(rec.BudgetStatus, s)
	}
	return rec, nil
}

func readStatusBinary(r io.Reader) (models.BudgetStatus, error) {
	var s models.BudgetStatus
	var err error
	if s.Subsystem, err = readString(r); err != nil {
		return s, err
	}
	if s.MetricID, err = readString(r); err != nil {
		return s, err
	}
	for _, dst := range []*float64{&s.ActualMs, &s.AllottedMs, &s.Percentage} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return s, err
		}
	}
	var level uint8
	if err := binary.Read(r, binary.LittleEndian, &level); err != nil {
		return s, err
	}
	s.Level = models.StatusLevel(level)
	return s, nil
}

func kindByte(k models.RecordKind) uint8 {
	switch k {
	case models.KindManual:
		return 1
	case models.KindEvent:
		return 2
	default:
		return 0
	}
}

func kindFromByte(b uint8) models.RecordKind {
	switch b {
	case 1:
		return models.KindManual
	case 2:
		return models.KindEvent
	default:
		return models.KindSample
	}
}

func writeCount(w io.Writer, n int) error {
	if n > math.MaxUint16 {
		return fmt.Errorf("count of %d entries exceeds frame limit", n)
	}
	return binary.Write(w, binary.LittleEndian, uint16(n))
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string of %d bytes exceeds frame limit", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
