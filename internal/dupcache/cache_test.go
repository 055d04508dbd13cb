package dupcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "submitted-invoices.cache")
	return NewCache(path, nil), path
}

func TestAddEntryThenCheck(t *testing.T) {
	cache, _ := newTestCache(t)

	if err := cache.AddEntry("INVOICE-1.pdf", "FIRS-2026-001", "ada@example.com"); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	result := cache.Check("INVOICE-1.pdf")
	if result.Status != StatusAlreadySubmitted {
		t.Fatalf("status = %v, want already submitted", result.Status)
	}
	if result.FIRSReference != "FIRS-2026-001" || result.SubmittedBy != "ada@example.com" {
		t.Errorf("result = %+v, want original reference and submitter", result)
	}
	if result.SubmitTime == 0 {
		t.Error("submit time not set")
	}

	if got := cache.Check("OTHER.pdf"); got.Status != StatusNotSubmitted {
		t.Errorf("Check(never added) = %v, want not submitted", got.Status)
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	cache, _ := newTestCache(t)
	if err := cache.AddEntry("X.pdf", "R-1", "u"); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	first := cache.Check("X.pdf")
	for i := 0; i < 5; i++ {
		if got := cache.Check("X.pdf"); got != first {
			t.Fatalf("Check result changed on repeat: %+v vs %+v", got, first)
		}
	}
	if cache.Count() != 1 {
		t.Errorf("Count = %d after repeated checks, want 1", cache.Count())
	}
}

func TestRoundTrip(t *testing.T) {
	for _, count := range []int{0, 1, 7} {
		t.Run(fmt.Sprintf("n=%d", count), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dup.cache")
			cache := NewCache(path, nil)

			want := make([]Record, 0, count)
			for i := 0; i < count; i++ {
				name := fmt.Sprintf("file-%02d.pdf", i)
				if err := cache.AddEntry(name, fmt.Sprintf("REF-%d", i), "user"); err != nil {
					t.Fatalf("AddEntry(%s): %v", name, err)
				}
				want = append(want, Record{Filename: name})
			}
			if count == 0 {
				if err := cache.Save(); err != nil {
					t.Fatalf("Save: %v", err)
				}
			}

			reloaded := NewCache(path, nil)
			got := reloaded.Records()
			if len(got) != count {
				t.Fatalf("reloaded %d records, want %d", len(got), count)
			}
			for i, record := range got {
				if record.Filename != want[i].Filename {
					t.Errorf("record %d filename = %q, want %q (order must survive)", i, record.Filename, want[i].Filename)
				}
				if record.FIRSReference != fmt.Sprintf("REF-%d", i) {
					t.Errorf("record %d reference = %q", i, record.FIRSReference)
				}
				if reloaded.Check(record.Filename).Status != StatusAlreadySubmitted {
					t.Errorf("index missing %q after reload", record.Filename)
				}
			}
		})
	}
}

func TestUnknownVersionLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.cache")

	data := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(data[0:4], 99)
	binary.LittleEndian.PutUint32(data[4:8], 0)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}

	cache := NewCache(path, nil)
	if cache.Count() != 0 {
		t.Fatalf("Count = %d, want 0 for unknown version", cache.Count())
	}

	// The store must recover into a valid version-1 file.
	if err := cache.AddEntry("A.pdf", "R", "u"); err != nil {
		t.Fatalf("AddEntry after unknown version: %v", err)
	}
	reloaded := NewCache(path, nil)
	if reloaded.Check("A.pdf").Status != StatusAlreadySubmitted {
		t.Error("record lost after recovering from unknown version")
	}
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.cache")
	if err := os.WriteFile(path, []byte("short"), 0o644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}
	cache := NewCache(path, nil)
	if cache.Count() != 0 {
		t.Errorf("Count = %d, want 0 for corrupt file", cache.Count())
	}
}

func TestTruncatedBodyLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.cache")
	data := encodeStore(header{Version: 1, EntryCount: 3}, []Record{{Filename: "only-one.pdf"}})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}
	cache := NewCache(path, nil)
	if cache.Count() != 0 {
		t.Errorf("Count = %d, want 0 when header overstates records", cache.Count())
	}
}

func TestAddEntryRejectsOverlongFields(t *testing.T) {
	cache, _ := newTestCache(t)

	cases := []struct {
		name                string
		filename, ref, user string
	}{
		{"filename", strings.Repeat("a", MaxFilenameLen+1), "R", "u"},
		{"reference", "ok.pdf", strings.Repeat("r", MaxReferenceLen+1), "u"},
		{"submitter", "ok.pdf", "R", strings.Repeat("u", MaxSubmitterLen+1)},
	}
	for _, tc := range cases {
		err := cache.AddEntry(tc.filename, tc.ref, tc.user)
		if !errors.Is(err, ErrFieldTooLong) {
			t.Errorf("%s: err = %v, want ErrFieldTooLong", tc.name, err)
		}
	}
	if cache.Count() != 0 {
		t.Errorf("Count = %d after rejected entries, want 0", cache.Count())
	}
}

func TestAddEntryBoundaryLengthsAccepted(t *testing.T) {
	cache, path := newTestCache(t)
	filename := strings.Repeat("f", MaxFilenameLen)
	if err := cache.AddEntry(filename, strings.Repeat("r", MaxReferenceLen), strings.Repeat("u", MaxSubmitterLen)); err != nil {
		t.Fatalf("AddEntry at field bounds: %v", err)
	}
	reloaded := NewCache(path, nil)
	got := reloaded.Check(filename)
	if got.Status != StatusAlreadySubmitted || len(got.FIRSReference) != MaxReferenceLen {
		t.Errorf("boundary record did not round-trip: %+v", got)
	}
}

func TestAddEntryRejectsDuplicateFilename(t *testing.T) {
	cache, _ := newTestCache(t)
	if err := cache.AddEntry("X.pdf", "REF-1", "first"); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	err := cache.AddEntry("X.pdf", "REF-2", "second")
	if !errors.Is(err, ErrAlreadyRecorded) {
		t.Fatalf("err = %v, want ErrAlreadyRecorded", err)
	}

	// The original record stays authoritative.
	got := cache.Check("X.pdf")
	if got.FIRSReference != "REF-1" || got.SubmittedBy != "first" {
		t.Errorf("Check after rejected duplicate = %+v", got)
	}
	if cache.Count() != 1 {
		t.Errorf("Count = %d, want 1", cache.Count())
	}
}

func TestAddEntryPersistFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cachedir", "dup.cache")
	cache := NewCache(path, nil)

	// Make the parent an unwritable file so the save must fail.
	if err := os.WriteFile(filepath.Join(dir, "cachedir"), []byte("in the way"), 0o644); err != nil {
		t.Fatalf("block cache dir: %v", err)
	}

	if err := cache.AddEntry("X.pdf", "R", "u"); err == nil {
		t.Fatal("expected persist error")
	}
	if got := cache.Check("X.pdf"); got.Status != StatusNotSubmitted {
		t.Errorf("state not rolled back after failed persist: %+v", got)
	}
}

func TestConcurrentAddEntries(t *testing.T) {
	cache, path := newTestCache(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = cache.AddEntry(fmt.Sprintf("worker-%d.pdf", n), fmt.Sprintf("REF-%d", n), "user")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d AddEntry: %v", i, err)
		}
	}

	reloaded := NewCache(path, nil)
	if reloaded.Count() != workers {
		t.Fatalf("reloaded %d records, want %d", reloaded.Count(), workers)
	}
	for i := 0; i < workers; i++ {
		if reloaded.Check(fmt.Sprintf("worker-%d.pdf", i)).Status != StatusAlreadySubmitted {
			t.Errorf("worker-%d.pdf missing after concurrent writes", i)
		}
	}
}

func TestUnconfiguredCacheIsUnavailable(t *testing.T) {
	cache := NewCache("", nil)
	if got := cache.Check("X.pdf"); got.Status != StatusUnavailable {
		t.Errorf("status = %v, want unavailable", got.Status)
	}
	if err := cache.AddEntry("X.pdf", "R", "u"); err == nil {
		t.Error("expected error from AddEntry without a path")
	}
}

func TestClear(t *testing.T) {
	cache, path := newTestCache(t)
	if err := cache.AddEntry("X.pdf", "R", "u"); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if NewCache(path, nil).Count() != 0 {
		t.Error("Clear did not persist the empty store")
	}
}
