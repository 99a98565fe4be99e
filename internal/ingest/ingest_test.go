package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func collect(t *testing.T, ch <-chan Job) []Job {
	t.Helper()
	var out []Job
	deadline := time.After(2 * time.Second)
	for {
		select {
		case job, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, job)
		case <-deadline:
			t.Fatalf("watch channel never closed, got %d jobs", len(out))
		}
	}
}

func TestRegistryWatchDeliversSnapshotThenTransitions(t *testing.T) {
	reg := NewRegistry()
	reg.Create(Job{ID: "j1", FileName: "case.pdf", Size: 42, State: JobReceived})

	ch, cancel, ok := reg.Watch("j1")
	if !ok {
		t.Fatalf("watch on existing job failed")
	}
	defer cancel()

	reg.MarkProcessing("j1")
	reg.MarkReady("j1", json.RawMessage(`{"case_id":"case_j1"}`))

	jobs := collect(t, ch)
	states := make([]JobState, len(jobs))
	for i, j := range jobs {
		states[i] = j.State
	}
	want := []JobState{JobReceived, JobProcessing, JobReady}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
	if string(jobs[len(jobs)-1].Result) != `{"case_id":"case_j1"}` {
		t.Fatalf("ready job lost its result: %s", jobs[len(jobs)-1].Result)
	}
}

func TestRegistryWatchTerminalJobClosesImmediately(t *testing.T) {
	reg := NewRegistry()
	reg.Create(Job{ID: "j2", State: JobReceived})
	reg.MarkFailed("j2", "document is not a PDF")

	ch, cancel, ok := reg.Watch("j2")
	if !ok {
		t.Fatalf("watch failed")
	}
	defer cancel()

	jobs := collect(t, ch)
	if len(jobs) != 1 || jobs[0].State != JobFailed || jobs[0].Err == "" {
		t.Fatalf("expected single failed snapshot, got %+v", jobs)
	}
}

func TestRegistryCancelDuringTransition(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 500; i++ {
		id := JobID(fmt.Sprintf("j%d", i))
		reg.Create(Job{ID: id, State: JobReceived})
		_, cancel, ok := reg.Watch(id)
		if !ok {
			t.Fatalf("watch failed")
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancel()
		}()
		go func() {
			defer wg.Done()
			reg.MarkProcessing(id)
		}()
		wg.Wait()
		reg.MarkReady(id, nil)
	}
}

func TestRegistryWatchUnknownJob(t *testing.T) {
	reg := NewRegistry()
	if _, _, ok := reg.Watch("missing"); ok {
		t.Fatalf("watch on unknown job must report not found")
	}
}

func TestPipelineProcessesDocument(t *testing.T) {
	reg := NewRegistry()
	p, err := NewPipeline(reg, CaseExtractor{}, t.TempDir())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	doc := []byte("%PDF-1.4\n" + strings.Repeat("x", 5000))
	job, err := p.Accept(context.Background(), "case.pdf", int64(len(doc)), bytes.NewReader(doc))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if job.ID == "" || job.FileName != "case.pdf" {
		t.Fatalf("bad receipt: %+v", job)
	}

	ch, cancel, ok := reg.Watch(job.ID)
	if !ok {
		t.Fatalf("watch: job vanished")
	}
	defer cancel()
	jobs := collect(t, ch)
	final := jobs[len(jobs)-1]
	if final.State != JobReady {
		t.Fatalf("job ended %s (%s), want ready", final.State, final.Err)
	}

	var res struct {
		CaseID        string `json:"case_id"`
		ChunksCreated int    `json:"chunks_created"`
	}
	if err := json.Unmarshal(final.Result, &res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.CaseID != "case_"+string(job.ID) {
		t.Fatalf("case id = %q", res.CaseID)
	}
	if res.ChunksCreated != 2 {
		t.Fatalf("chunks = %d, want 2 for %d bytes", res.ChunksCreated, len(doc))
	}
}

func TestPipelineRejectsNonPDFContent(t *testing.T) {
	reg := NewRegistry()
	p, err := NewPipeline(reg, CaseExtractor{}, t.TempDir())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	doc := []byte("just some text")
	job, err := p.Accept(context.Background(), "fake.pdf", int64(len(doc)), bytes.NewReader(doc))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	ch, cancel, ok := reg.Watch(job.ID)
	if !ok {
		t.Fatalf("watch: job vanished")
	}
	defer cancel()
	jobs := collect(t, ch)
	final := jobs[len(jobs)-1]
	if final.State != JobFailed || !strings.Contains(final.Err, "not a PDF") {
		t.Fatalf("expected PDF rejection, got %+v", final)
	}
}

func TestPipelineRejectsShortWrite(t *testing.T) {
	reg := NewRegistry()
	p, err := NewPipeline(reg, CaseExtractor{}, t.TempDir())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	doc := []byte("%PDF-1.4")
	if _, err := p.Accept(context.Background(), "case.pdf", int64(len(doc))+10, bytes.NewReader(doc)); err == nil {
		t.Fatalf("size mismatch must be rejected")
	}
}
