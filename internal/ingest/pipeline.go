package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pipeline accepts uploads and drives each job through
// received -> processing -> ready|failed on its own goroutine.
type Pipeline struct {
	reg *Registry
	ex  Extractor
	dir string
}

func NewPipeline(reg *Registry, ex Extractor, dir string) (*Pipeline, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Pipeline{reg: reg, ex: ex, dir: dir}, nil
}

func (p *Pipeline) Registry() *Registry { return p.reg }

// Accept stores the document, registers the job and kicks off processing.
// The returned snapshot is the receipt the upload response is built from.
func (p *Pipeline) Accept(ctx context.Context, fileName string, size int64, content io.Reader) (Job, error) {
	id := JobID(uuid.NewString())
	path := filepath.Join(p.dir, string(id)+".pdf")

	dst, err := os.Create(path)
	if err != nil {
		return Job{}, fmt.Errorf("store upload: %w", err)
	}
	written, err := io.Copy(dst, content)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return Job{}, fmt.Errorf("store upload: %w", err)
	}
	if written != size {
		_ = os.Remove(path)
		return Job{}, fmt.Errorf("store upload: wrote %d of %d bytes", written, size)
	}

	job := Job{ID: id, FileName: fileName, Size: size, State: JobReceived}
	p.reg.Create(job)

	go p.process(id, path)

	snap, _ := p.reg.Get(id)
	return snap, nil
}

func (p *Pipeline) process(id JobID, path string) {
	p.reg.MarkProcessing(id)

	result, err := p.ex.Extract(context.Background(), id, path)
	if err != nil {
		log.Error().Err(err).Str("module", "ingest").Str("job", string(id)).Msg("extraction failed")
		p.reg.MarkFailed(id, err.Error())
		return
	}
	p.reg.MarkReady(id, result)
}
