package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fenwick/toolplane/internal/artifact"
	"github.com/fenwick/toolplane/internal/errors"
)

// Shim request types. The host resolves exactly these three; anything
// else is answered with an error.
const (
	RequestArtifactContent  = "artifact.content"
	RequestArtifactMetadata = "artifact.metadata"
	RequestArtifactList     = "artifact.list"
)

// ShimRequest is one read-only query crossing the slot boundary. The
// payload is serialized so no live host references reach job code.
type ShimRequest struct {
	ID          string          `json:"id"`
	RequestType string          `json:"request_type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// ShimResponse answers one request, keyed by the request id. Exactly one
// of Data and Error is set.
type ShimResponse struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// shimEnvelope pairs a request with its reply channel. The reply channel
// is buffered so the host never blocks on a caller that gave up.
type shimEnvelope struct {
	req   ShimRequest
	reply chan ShimResponse
}

// contentPayload is the wire form of an artifact content query.
type contentPayload struct {
	ID        string `json:"id"`
	Revision  int    `json:"revision"`
	VersionID string `json:"version_id,omitempty"`
}

// metadataPayload is the wire form of an artifact metadata query.
type metadataPayload struct {
	ID        string `json:"id"`
	VersionID string `json:"version_id,omitempty"`
}

// shimHost owns the privileged accessor and serializes all shim traffic
// through a single goroutine.
type shimHost struct {
	accessor artifact.Accessor
	requests chan shimEnvelope
	quit     chan struct{}
}

func newShimHost(accessor artifact.Accessor) *shimHost {
	return &shimHost{
		accessor: accessor,
		requests: make(chan shimEnvelope),
		quit:     make(chan struct{}),
	}
}

// run services shim requests until the host is stopped.
func (h *shimHost) run() {
	for {
		select {
		case <-h.quit:
			return
		case env := <-h.requests:
			env.reply <- h.handle(env.req)
		}
	}
}

func (h *shimHost) stop() {
	close(h.quit)
}

// handle resolves one request against the accessor. All results cross
// back as JSON; accessor errors cross as strings.
func (h *shimHost) handle(req ShimRequest) ShimResponse {
	if h.accessor == nil {
		return errResponse(req.ID, errors.New("no artifact accessor attached"))
	}

	switch req.RequestType {
	case RequestArtifactContent:
		var p contentPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return errResponse(req.ID, fmt.Errorf("malformed payload: %w", err))
		}
		content, err := h.accessor.Content(p.ID, p.Revision, p.VersionID)
		if err != nil {
			return errResponse(req.ID, err)
		}
		return dataResponse(req.ID, content)

	case RequestArtifactMetadata:
		var p metadataPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return errResponse(req.ID, fmt.Errorf("malformed payload: %w", err))
		}
		meta, err := h.accessor.Metadata(p.ID, p.VersionID)
		if err != nil {
			return errResponse(req.ID, err)
		}
		return dataResponse(req.ID, meta)

	case RequestArtifactList:
		metas, err := h.accessor.AllMetadata()
		if err != nil {
			return errResponse(req.ID, err)
		}
		return dataResponse(req.ID, metas)

	default:
		return errResponse(req.ID,
			errors.Wrapf(errors.ErrUnknownShimRequest, "request type %q", req.RequestType))
	}
}

func dataResponse(id string, v any) ShimResponse {
	data, err := json.Marshal(v)
	if err != nil {
		return errResponse(id, fmt.Errorf("serializing response: %w", err))
	}
	return ShimResponse{ID: id, Data: data}
}

func errResponse(id string, err error) ShimResponse {
	return ShimResponse{ID: id, Error: err.Error()}
}

// Shim is the job-side client of the shim protocol. Each call serializes
// a typed request, sends it to the host, and decodes the reply. A Shim is
// handed to every job body and is safe for use by that body only.
type Shim struct {
	requests chan<- shimEnvelope
	quit     <-chan struct{}
}

// ArtifactContent fetches the content of one artifact version. A negative
// revision or an empty versionID selects the latest version.
func (s *Shim) ArtifactContent(id string, revision int, versionID string) (string, error) {
	resp, err := s.roundTrip(RequestArtifactContent, contentPayload{
		ID:        id,
		Revision:  revision,
		VersionID: versionID,
	})
	if err != nil {
		return "", err
	}
	var content string
	if err := json.Unmarshal(resp.Data, &content); err != nil {
		return "", fmt.Errorf("decoding content response: %w", err)
	}
	return content, nil
}

// ArtifactMetadata fetches the metadata of one artifact version.
func (s *Shim) ArtifactMetadata(id, versionID string) (artifact.Metadata, error) {
	resp, err := s.roundTrip(RequestArtifactMetadata, metadataPayload{
		ID:        id,
		VersionID: versionID,
	})
	if err != nil {
		return artifact.Metadata{}, err
	}
	var meta artifact.Metadata
	if err := json.Unmarshal(resp.Data, &meta); err != nil {
		return artifact.Metadata{}, fmt.Errorf("decoding metadata response: %w", err)
	}
	return meta, nil
}

// AllArtifactMetadata fetches the latest metadata of every artifact.
func (s *Shim) AllArtifactMetadata() ([]artifact.Metadata, error) {
	resp, err := s.roundTrip(RequestArtifactList, nil)
	if err != nil {
		return nil, err
	}
	var metas []artifact.Metadata
	if err := json.Unmarshal(resp.Data, &metas); err != nil {
		return nil, fmt.Errorf("decoding metadata list: %w", err)
	}
	return metas, nil
}

// roundTrip sends one request and waits for its reply. A stopped host
// fails the call instead of hanging the job body.
func (s *Shim) roundTrip(requestType string, payload any) (ShimResponse, error) {
	req := ShimRequest{
		ID:          uuid.NewString(),
		RequestType: requestType,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return ShimResponse{}, fmt.Errorf("serializing payload: %w", err)
		}
		req.Payload = data
	}

	env := shimEnvelope{req: req, reply: make(chan ShimResponse, 1)}
	select {
	case s.requests <- env:
	case <-s.quit:
		return ShimResponse{}, errors.ErrPoolTerminated
	}

	select {
	case resp := <-env.reply:
		if resp.Error != "" {
			return ShimResponse{}, errors.New(resp.Error)
		}
		return resp, nil
	case <-s.quit:
		return ShimResponse{}, errors.ErrPoolTerminated
	}
}
