package relay

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/filedrop/service/internal/response"
)

// Handler holds HTTP handlers for the upload relay.
type Handler struct {
	svc      *Service
	maxBytes int64
}

// NewHandler creates a relay Handler. maxBytes caps the whole multipart
// request body.
func NewHandler(svc *Service, maxBytes int64) *Handler {
	return &Handler{svc: svc, maxBytes: maxBytes}
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Relays a single multipart file to the content-addressed storage gateway and returns its CID.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload (max 100 MiB)"
//	@Success		200		{object}	gateway.AddResult
//	@Failure		500		{object}	response.UploadFailure
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Reject oversize requests at the transport boundary, before buffering.
	if r.ContentLength > h.maxBytes {
		log.Printf("relay: rejecting %d byte request (limit %d)", r.ContentLength, h.maxBytes)
		response.UploadFailed(w, h.svc.RedactedUpstreamURL())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	part, err := openFilePart(r)
	if err != nil {
		log.Printf("relay: reading multipart request: %v", err)
		response.UploadFailed(w, h.svc.RedactedUpstreamURL())
		return
	}
	defer part.Close()

	result, err := h.svc.Relay(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
	if err != nil {
		log.Printf("relay: upload failed: %v", err)
		response.UploadFailed(w, h.svc.RedactedUpstreamURL())
		return
	}

	response.OK(w, result)
}

var errNoFilePart = errors.New(`multipart request has no "file" part`)

// openFilePart walks the multipart stream until the "file" part, so the
// request body is consumed incrementally rather than parsed into memory.
func openFilePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		p, err := mr.NextPart()
		if err != nil {
			return nil, errNoFilePart
		}
		if p.FormName() == "file" {
			return p, nil
		}
		p.Close()
	}
}
