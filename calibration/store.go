package calibration

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

const (
	// RecordVersion is the current schema version of the persisted
	// calibration record. Records with any other version are ignored.
	RecordVersion = 1

	// MinSpan is the smallest usable raw range. A persisted or learned
	// range narrower than this cannot distinguish gas levels from noise.
	MinSpan = 30.0

	// MaxRawValue is the highest reading the 12-bit ADC can produce.
	MaxRawValue = 4095.0

	recordFile = "gas-calibration.json"
)

// Record is the durable gas calibration record. The CRC covers the bit
// patterns of both floats so a corrupted or hand-edited record is
// treated as absent rather than trusted.
type Record struct {
	Version uint16  `json:"ver"`
	RawMin  float64 `json:"min"`
	RawMax  float64 `json:"max"`
	CRC     uint32  `json:"crc"`
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the integrity tag for a raw range.
func Checksum(rawMin, rawMax float64) uint32 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(rawMin))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(rawMax))
	return crc32.Checksum(buf[:], crcTable)
}

// Store persists calibration records to a JSON file in the state
// directory. Load fails open: anything wrong with the stored record
// simply forces a fresh calibration, it is never fatal.
type Store struct {
	path string
}

func NewStore(stateDir string) *Store {
	return &Store{path: filepath.Join(stateDir, recordFile)}
}

// Load returns the persisted record, or nil and false if no valid
// record exists.
func (s *Store) Load() (*Record, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Failed to read calibration record: %v", err)
		}
		return nil, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warnf("Calibration record is not valid JSON, ignoring it: %v", err)
		return nil, false
	}
	if !rec.Valid() {
		log.Warnf("Calibration record failed validation, ignoring it: %+v", rec)
		return nil, false
	}
	return &rec, true
}

// Valid reports whether the record passes the schema, range, and
// integrity checks.
func (r *Record) Valid() bool {
	if r.Version != RecordVersion {
		return false
	}
	if r.RawMin < 0 || r.RawMax > MaxRawValue {
		return false
	}
	if r.RawMax-r.RawMin < MinSpan {
		return false
	}
	return r.CRC == Checksum(r.RawMin, r.RawMax)
}

// Save writes a new record for the given range. A write failure is
// returned to the caller but leaves any in-memory calibration intact.
func (s *Store) Save(rawMin, rawMax float64) error {
	rec := Record{
		Version: RecordVersion,
		RawMin:  rawMin,
		RawMax:  rawMax,
		CRC:     Checksum(rawMin, rawMax),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal calibration record: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to make state directory: %v", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write calibration record: %v", err)
	}
	return nil
}

// Clear erases the persisted record. Clearing an absent record is not
// an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) markerPath() string {
	return filepath.Join(filepath.Dir(s.path), "recalibrate-requested")
}

// RequestRecalibration leaves a marker telling the next boot to ignore
// the persisted record and relearn, without destroying the record.
func (s *Store) RequestRecalibration() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.markerPath(), []byte{}, 0644)
}

// ConsumeRecalibrationRequest reports whether a recalibration marker
// was present, removing it.
func (s *Store) ConsumeRecalibrationRequest() bool {
	if _, err := os.Stat(s.markerPath()); err != nil {
		return false
	}
	if err := os.Remove(s.markerPath()); err != nil {
		log.Warnf("Failed to remove recalibration marker: %v", err)
	}
	return true
}
