package providers

import (
	"context"
	"testing"

	"euphonica-core/internal/model"
	"euphonica-core/internal/mpdconn"
)

type fakeTaskRunner struct {
	result []byte
	err    error
}

func (f *fakeTaskRunner) EnqueueTask(task *mpdconn.Task) {
	task.Result = f.result
	task.Err = f.err
	close(task.Done)
}

func TestDaemonProviderFetchFolderCoverReturnsTaskResult(t *testing.T) {
	runner := &fakeTaskRunner{result: []byte("png-bytes")}
	p := NewDaemonProvider(runner)

	data, err := p.FetchFolderCover(context.Background(), model.AlbumInfo{FolderURI: "Music/A/B"})
	if err != nil {
		t.Fatalf("FetchFolderCover: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("got %q, want png-bytes", data)
	}
}

func TestDaemonProviderPropagatesTaskError(t *testing.T) {
	runner := &fakeTaskRunner{err: context.DeadlineExceeded}
	p := NewDaemonProvider(runner)

	_, err := p.FetchEmbeddedCover(context.Background(), model.SongInfo{URI: "Music/A/B/01.flac"})
	if err == nil {
		t.Fatal("expected task error to propagate")
	}
}
