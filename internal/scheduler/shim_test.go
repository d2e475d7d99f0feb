package scheduler

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fenwick/toolplane/internal/artifact"
)

func seededAccessor() *artifact.MemoryAccessor {
	acc := artifact.NewMemoryAccessor()
	acc.Put("plan", "plan.md", "text/markdown", "draft")
	acc.Put("plan", "plan.md", "text/markdown", "final")
	acc.Put("notes", "notes.txt", "text/plain", "remember the cooldown")
	return acc
}

func TestJobReadsArtifactContentThroughShim(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), seededAccessor(), nil, nil)
	t.Cleanup(p.Terminate)
	p.Registry().Register("read-latest", func(_ context.Context, shim *Shim, args []any) (any, error) {
		return shim.ArtifactContent(args[0].(string), -1, "")
	})

	fut, err := p.Submit("read-latest", []any{"plan"}, SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	value, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if value != "final" {
		t.Errorf("content = %v, want final (latest revision)", value)
	}
}

func TestShimFetchesSpecificRevision(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), seededAccessor(), nil, nil)
	t.Cleanup(p.Terminate)
	p.Registry().Register("read-rev", func(_ context.Context, shim *Shim, args []any) (any, error) {
		return shim.ArtifactContent(args[0].(string), args[1].(int), "")
	})

	fut, _ := p.Submit("read-rev", []any{"plan", 0}, SubmitOptions{})
	value, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if value != "draft" {
		t.Errorf("content = %v, want draft (revision 0)", value)
	}
}

func TestShimFetchesMetadata(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), seededAccessor(), nil, nil)
	t.Cleanup(p.Terminate)
	p.Registry().Register("meta", func(_ context.Context, shim *Shim, args []any) (any, error) {
		meta, err := shim.ArtifactMetadata(args[0].(string), "")
		if err != nil {
			return nil, err
		}
		return meta.VersionID, nil
	})

	fut, _ := p.Submit("meta", []any{"plan"}, SubmitOptions{})
	value, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if value != "plan-v1" {
		t.Errorf("VersionID = %v, want plan-v1", value)
	}
}

func TestShimListsAllMetadata(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), seededAccessor(), nil, nil)
	t.Cleanup(p.Terminate)
	p.Registry().Register("list", func(_ context.Context, shim *Shim, _ []any) (any, error) {
		metas, err := shim.AllArtifactMetadata()
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(metas))
		for i, m := range metas {
			ids[i] = m.ID
		}
		return strings.Join(ids, ","), nil
	})

	fut, _ := p.Submit("list", nil, SubmitOptions{})
	value, err := fut.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if value != "notes,plan" {
		t.Errorf("ids = %v, want notes,plan", value)
	}
}

func TestShimErrorForMissingArtifact(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), seededAccessor(), nil, nil)
	t.Cleanup(p.Terminate)
	p.Registry().Register("read", func(_ context.Context, shim *Shim, args []any) (any, error) {
		return shim.ArtifactContent(args[0].(string), -1, "")
	})

	fut, _ := p.Submit("read", []any{"ghost"}, SubmitOptions{})
	_, err := fut.Wait(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want a relayed not-found error", err)
	}
}

func TestHostRejectsUnknownRequestType(t *testing.T) {
	h := newShimHost(seededAccessor())

	resp := h.handle(ShimRequest{ID: "r1", RequestType: "artifact.delete"})

	if resp.ID != "r1" {
		t.Errorf("response ID = %s, want r1", resp.ID)
	}
	if resp.Error == "" || !strings.Contains(resp.Error, "artifact.delete") {
		t.Errorf("Error = %q, want an unknown-request error naming the type", resp.Error)
	}
	if resp.Data != nil {
		t.Error("error response must not carry data")
	}
}

func TestHostRejectsMalformedPayload(t *testing.T) {
	h := newShimHost(seededAccessor())

	resp := h.handle(ShimRequest{
		ID:          "r2",
		RequestType: RequestArtifactContent,
		Payload:     json.RawMessage("{broken"),
	})
	if resp.Error == "" {
		t.Error("malformed payload should produce an error response")
	}
}

func TestHostWithoutAccessorFailsQueries(t *testing.T) {
	h := newShimHost(nil)

	resp := h.handle(ShimRequest{ID: "r3", RequestType: RequestArtifactList})
	if resp.Error == "" {
		t.Error("query without an accessor should fail, not panic")
	}
}

func TestShimFailsAfterTerminate(t *testing.T) {
	p := New(Config{PoolSize: 1, MaxQueueSize: 10}, NewRegistry(), seededAccessor(), nil, nil)
	p.Terminate()

	shim := &Shim{requests: p.host.requests, quit: p.host.quit}
	if _, err := shim.AllArtifactMetadata(); err == nil {
		t.Error("shim query against a terminated pool should fail")
	}
}
