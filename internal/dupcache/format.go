package dupcache

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// On-disk layout, little-endian, no padding beyond the documented fields:
//
//	header:  u32 version (must be 1), u32 entry_count, u64 last_sync_timestamp
//	record:  filename[256] NUL-padded, u64 submit_timestamp,
//	         firs_reference[32] NUL-padded, submitted_by[64] NUL-padded
const (
	formatVersion = 1
	headerSize    = 16
	recordSize    = 256 + 8 + 32 + 64

	// Maximum field lengths leave room for the NUL terminator the fixed
	// buffers carry.
	MaxFilenameLen  = 255
	MaxReferenceLen = 31
	MaxSubmitterLen = 63
)

type header struct {
	Version    uint32
	EntryCount uint32
	LastSync   uint64
}

// Record is one submitted-invoice entry. Identity is the base filename,
// case-sensitive.
type Record struct {
	Filename      string
	SubmitTime    uint64 // epoch seconds
	FIRSReference string
	SubmittedBy   string
}

func encodeStore(hdr header, records []Record) []byte {
	buf := make([]byte, 0, headerSize+len(records)*recordSize)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.Version)
	buf = binary.LittleEndian.AppendUint32(buf, hdr.EntryCount)
	buf = binary.LittleEndian.AppendUint64(buf, hdr.LastSync)

	for _, record := range records {
		buf = appendPadded(buf, record.Filename, 256)
		buf = binary.LittleEndian.AppendUint64(buf, record.SubmitTime)
		buf = appendPadded(buf, record.FIRSReference, 32)
		buf = appendPadded(buf, record.SubmittedBy, 64)
	}
	return buf
}

func appendPadded(buf []byte, value string, width int) []byte {
	raw := []byte(value)
	if len(raw) >= width {
		raw = raw[:width-1]
	}
	buf = append(buf, raw...)
	for i := len(raw); i < width; i++ {
		buf = append(buf, 0)
	}
	return buf
}

// decodeStore parses a cache file image. Unknown versions and truncated
// data are not errors at the Load boundary; the caller maps the error to an
// empty store.
func decodeStore(data []byte) (header, []Record, error) {
	if len(data) < headerSize {
		return header{}, nil, fmt.Errorf("cache file too short: %d bytes", len(data))
	}

	hdr := header{
		Version:    binary.LittleEndian.Uint32(data[0:4]),
		EntryCount: binary.LittleEndian.Uint32(data[4:8]),
		LastSync:   binary.LittleEndian.Uint64(data[8:16]),
	}
	if hdr.Version != formatVersion {
		return header{}, nil, fmt.Errorf("unknown cache format version %d", hdr.Version)
	}

	body := data[headerSize:]
	if uint64(len(body)) < uint64(hdr.EntryCount)*recordSize {
		return header{}, nil, fmt.Errorf("cache file truncated: header claims %d records, body holds %d bytes",
			hdr.EntryCount, len(body))
	}

	records := make([]Record, 0, hdr.EntryCount)
	for i := uint32(0); i < hdr.EntryCount; i++ {
		chunk := body[uint64(i)*recordSize:]
		records = append(records, Record{
			Filename:      cString(chunk[0:256]),
			SubmitTime:    binary.LittleEndian.Uint64(chunk[256:264]),
			FIRSReference: cString(chunk[264:296]),
			SubmittedBy:   cString(chunk[296:360]),
		})
	}
	return hdr, records, nil
}

func cString(raw []byte) string {
	if idx := bytes.IndexByte(raw, 0); idx >= 0 {
		raw = raw[:idx]
	}
	return string(raw)
}
