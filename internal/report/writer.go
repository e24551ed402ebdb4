package report

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rimasko/orkpulse/internal/domain/models"
	"github.com/rimasko/orkpulse/internal/logger"
)

// DefaultChunkCap is the maximum number of events per output document.
const DefaultChunkCap = 250000

// Writer splits an event batch into capped chunks and writes each one as a
// validated, zip-compressed document.
//
// The output directory is a shared, unsynchronized resource: the sequence
// number embedded in filenames is derived from the directory's file count at
// call time, so concurrent writers targeting the same directory must be
// serialized by the caller.
type Writer struct {
	builder   *Builder
	validator Validator
	version   string
	cap       int

	now func() time.Time
}

// NewWriter builds a Writer. cap values below 2 fall back to DefaultChunkCap.
func NewWriter(builder *Builder, validator Validator, version string, cap int) *Writer {
	if cap < 2 {
		cap = DefaultChunkCap
	}
	return &Writer{builder: builder, validator: validator, version: version, cap: cap, now: time.Now}
}

// splitChunks partitions a batch into ceil(N/cap) contiguous,
// order-preserving slices of at most cap events each.
func splitChunks(batch []models.EnrichedEvent, cap int) [][]models.EnrichedEvent {
	var chunks [][]models.EnrichedEvent
	for start := 0; start < len(batch); start += cap {
		end := start + cap
		if end > len(batch) {
			end = len(batch)
		}
		chunks = append(chunks, batch[start:end])
	}
	return chunks
}

// Emit writes one zip archive per chunk into outDir and returns the written
// filenames. A chunk that fails schema validation is dropped with its
// diagnostics logged while the remaining chunks proceed; chunks are written
// atomically (temp file + rename), so a failed chunk leaves nothing behind.
func (w *Writer) Emit(batch []models.EnrichedEvent, outDir string) ([]string, error) {
	if len(batch) < 2 {
		panic("report: batch must contain more than one event")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	genDate := w.now().UTC().Format("060102")
	chunks := splitChunks(batch, w.cap)

	var written []string
	for i, chunk := range chunks {
		if len(chunk) < 2 {
			// A one-event trailing chunk cannot form a valid document.
			logger.L().Error().Int("chunk", i+1).Int("total", len(chunks)).
				Msg("chunk below minimum event count, dropped")
			continue
		}

		doc, err := w.builder.BuildDocument(chunk)
		if err != nil {
			return written, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		doc.Indent(2)
		payload, err := doc.WriteToBytes()
		if err != nil {
			return written, fmt.Errorf("chunk %d/%d: serialize: %w", i+1, len(chunks), err)
		}

		if w.validator != nil {
			if err := w.validator.Validate(payload); err != nil {
				var se *SchemaError
				if errors.As(err, &se) {
					for _, d := range se.Diagnostics {
						logger.L().Error().Int("chunk", i+1).Str("diagnostic", d).Msg("schema violation")
					}
					logger.L().Error().Int("chunk", i+1).Int("total", len(chunks)).
						Int("events", len(chunk)).Msg("chunk failed schema validation, skipped")
					continue
				}
				return written, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
		}

		_, chunkEnd, err := eventTimeRange(chunk)
		if err != nil {
			return written, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}

		name, err := w.chunkName(outDir, chunkEnd, genDate, i+1, len(chunks))
		if err != nil {
			return written, err
		}
		if err := writeZip(outDir, name, payload); err != nil {
			return written, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		logger.L().Info().Str("file", name+".zip").Int("events", len(chunk)).Msg("report archive written")
		written = append(written, name+".zip")
	}
	return written, nil
}

// chunkName builds the fixed filename grammar:
// sender, message type, recipient, market, the chunk's maximum event date,
// the generation date, the version token, the 1-based chunk index padded
// against the chunk total, a sequence number derived from the destination's
// current file count, and a 2-character generation-date prefix.
func (w *Writer) chunkName(outDir string, chunkEnd time.Time, genDate string, idx, total int) (string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("count output dir: %w", err)
	}
	return fmt.Sprintf("NCALT_DATORD_XESMA_%s-%s-%s-%s_%02dZ%02d_%06d_%s",
		venueMIC,
		chunkEnd.Format("20060102"),
		genDate,
		w.version,
		idx, total,
		len(entries)+1,
		genDate[:2],
	), nil
}

// writeZip writes name.zip containing a single deflate-compressed name.xml
// entry, via a temp file so partial output never lands under the final name.
func writeZip(outDir, name string, payload []byte) error {
	tmp, err := os.CreateTemp(outDir, ".orkpulse-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	zw := zip.NewWriter(tmp)
	entry, err := zw.Create(name + ".xml")
	if err == nil {
		_, err = entry.Write(payload)
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	return os.Rename(tmpPath, filepath.Join(outDir, name+".zip"))
}
