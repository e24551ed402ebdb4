package report

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rimasko/orkpulse/internal/domain/models"
)

var archiveName = regexp.MustCompile(`^NCALT_DATORD_XESMA_XLIT-\d{8}-\d{6}-001_\d{2}Z\d{2}_\d{6}_\d{2}\.zip$`)

// fakeValidator returns canned verdicts per call, in order. A nil entry
// means the document passes.
type fakeValidator struct {
	verdicts []error
	calls    int
}

func (f *fakeValidator) Validate([]byte) error {
	var err error
	if f.calls < len(f.verdicts) {
		err = f.verdicts[f.calls]
	}
	f.calls++
	return err
}

func testWriter(validator Validator, cap int) *Writer {
	w := NewWriter(testBuilder(), validator, "001", cap)
	w.now = func() time.Time { return time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC) }
	return w
}

func eventBatch(n int) []models.EnrichedEvent {
	batch := make([]models.EnrichedEvent, n)
	for i := range batch {
		batch[i] = baseEvent(int64(i+1), "2025-06-02T09:00:00Z")
	}
	return batch
}

func TestSplitChunks(t *testing.T) {
	cases := []struct {
		name  string
		n     int
		cap   int
		sizes []int
	}{
		{name: "under cap", n: 3, cap: 5, sizes: []int{3}},
		{name: "exact cap", n: 5, cap: 5, sizes: []int{5}},
		{name: "cap plus one", n: 6, cap: 5, sizes: []int{5, 1}},
		{name: "multiple full", n: 10, cap: 5, sizes: []int{5, 5}},
		{name: "empty", n: 0, cap: 5, sizes: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := splitChunks(eventBatch(tc.n), tc.cap)
			if len(chunks) != len(tc.sizes) {
				t.Fatalf("want %d chunks got %d", len(tc.sizes), len(chunks))
			}
			seq := int64(1)
			for i, chunk := range chunks {
				if len(chunk) != tc.sizes[i] {
					t.Fatalf("chunk %d: want %d events got %d", i, tc.sizes[i], len(chunk))
				}
				for _, e := range chunk {
					if e.SeqNum != seq {
						t.Fatalf("chunk order broken: want seq %d got %d", seq, e.SeqNum)
					}
					seq++
				}
			}
		})
	}
}

func TestNewWriter_CapFallback(t *testing.T) {
	if w := NewWriter(testBuilder(), nil, "001", 0); w.cap != DefaultChunkCap {
		t.Fatalf("cap = %d, want default", w.cap)
	}
	if w := NewWriter(testBuilder(), nil, "001", 1); w.cap != DefaultChunkCap {
		t.Fatalf("cap = %d, want default", w.cap)
	}
	if w := NewWriter(testBuilder(), nil, "001", 2); w.cap != 2 {
		t.Fatalf("cap = %d, want 2", w.cap)
	}
}

func TestEmit_SingleArchive(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(&fakeValidator{}, 100)

	files, err := w.Emit(eventBatch(4), dir)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("want 1 archive got %d", len(files))
	}
	if !archiveName.MatchString(files[0]) {
		t.Fatalf("filename %q does not match grammar", files[0])
	}
	if !strings.Contains(files[0], "-250605-") {
		t.Fatalf("filename %q must embed the generation date", files[0])
	}
	if !strings.Contains(files[0], "-20250602-") {
		t.Fatalf("filename %q must embed the chunk's max event date", files[0])
	}
	if !strings.Contains(files[0], "_01Z01_") {
		t.Fatalf("filename %q must carry index and total", files[0])
	}

	zr, err := zip.OpenReader(filepath.Join(dir, files[0]))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = zr.Close() }()

	if len(zr.File) != 1 {
		t.Fatalf("want 1 entry got %d", len(zr.File))
	}
	entry := zr.File[0]
	if entry.Name != strings.TrimSuffix(files[0], ".zip")+".xml" {
		t.Fatalf("entry name = %q", entry.Name)
	}
	rc, err := entry.Open()
	if err != nil {
		t.Fatal(err)
	}
	payload, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(payload), "<BizData") {
		t.Fatal("archive entry does not contain the document")
	}
}

func TestEmit_SplitsAndNumbers(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(&fakeValidator{}, 3)

	files, err := w.Emit(eventBatch(6), dir)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("want 2 archives got %d", len(files))
	}
	if !strings.Contains(files[0], "_01Z02_000001_") || !strings.Contains(files[1], "_02Z02_000002_") {
		t.Fatalf("chunk numbering wrong: %v", files)
	}
}

func TestEmit_DropsOneEventTrailingChunk(t *testing.T) {
	dir := t.TempDir()
	w := testWriter(&fakeValidator{}, 3)

	files, err := w.Emit(eventBatch(4), dir)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("want 1 archive got %d", len(files))
	}
	if !strings.Contains(files[0], "_01Z02_") {
		t.Fatalf("kept chunk must still be numbered against the original total: %q", files[0])
	}
}

func TestEmit_SkipsInvalidChunk(t *testing.T) {
	dir := t.TempDir()
	v := &fakeValidator{verdicts: []error{
		&SchemaError{Diagnostics: []string{"line 3: bad element"}},
		nil,
	}}
	w := testWriter(v, 3)

	files, err := w.Emit(eventBatch(6), dir)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("want 1 surviving archive got %d", len(files))
	}
	if !strings.Contains(files[0], "_02Z02_") {
		t.Fatalf("second chunk should survive: %q", files[0])
	}
	if v.calls != 2 {
		t.Fatalf("validator calls = %d, want 2", v.calls)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("skipped chunk must leave nothing behind, dir has %d entries", len(entries))
	}
}

func TestEmit_ValidatorFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	v := &fakeValidator{verdicts: []error{io.ErrUnexpectedEOF}}
	w := testWriter(v, 100)

	if _, err := w.Emit(eventBatch(4), dir); err == nil {
		t.Fatal("non-schema validator error must abort the emit")
	}
}

func TestEmit_PanicsOnSmallBatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for single-event batch")
		}
	}()
	_, _ = testWriter(&fakeValidator{}, 100).Emit(eventBatch(1), t.TempDir())
}

func TestEnsureMasterSchema(t *testing.T) {
	dir := t.TempDir()

	path, err := EnsureMasterSchema(dir)
	if err != nil {
		t.Fatalf("EnsureMasterSchema: %v", err)
	}
	if filepath.Base(path) != MasterSchemaFile {
		t.Fatalf("path = %q", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"head.001.001.01_ESMAUG_1.0.0.xsd",
		"auth.anonym.113.001.01.xsd",
		"head.003.001.01.xsd",
	} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("master schema missing reference to %s", want)
		}
	}

	// Idempotent: a second call must not rewrite an existing file.
	if err := os.WriteFile(path, []byte("customized"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureMasterSchema(dir); err != nil {
		t.Fatalf("second EnsureMasterSchema: %v", err)
	}
	content, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "customized" {
		t.Fatal("existing schema file must not be overwritten")
	}
}

func TestSchemaError_Error(t *testing.T) {
	e := &SchemaError{Diagnostics: []string{"line 1: a", "line 2: b"}}
	got := e.Error()
	if !strings.Contains(got, "line 1: a") || !strings.Contains(got, "line 2: b") {
		t.Fatalf("Error() = %q", got)
	}
}
