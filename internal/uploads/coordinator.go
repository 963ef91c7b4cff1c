// Package uploads manages attachment uploads for the message currently
// being composed.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"messenger/internal/metrics"
	"messenger/pkg/types"
)

// ErrUploadsInFlight is returned when a send is attempted while at least
// one upload has not yet resolved.
var ErrUploadsInFlight = errors.New("attachment uploads still in flight")

// Uploader is the slice of the data service the coordinator needs.
type Uploader interface {
	UploadAttachment(ctx context.Context, up types.AttachmentUpload) (*types.AttachmentMeta, error)
}

// File is one upload request for UploadAll.
type File struct {
	Filename string
	Data     []byte
}

// Coordinator tracks zero-or-more in-flight uploads tied to the composed
// message. The pending set only ever grows until Reset; a failed upload
// surfaces an error without touching it. Sending must be blocked while
// IsUploading reports true.
type Coordinator struct {
	mu         sync.Mutex
	uploader   Uploader
	pending    []types.AttachmentMeta
	inFlight   int
	resetToken uint64
	onComplete func(types.AttachmentMeta)
	log        zerolog.Logger
}

// New creates a coordinator with an empty pending set.
func New(uploader Uploader, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		uploader: uploader,
		log:      log.With().Str("component", "upload-coordinator").Logger(),
	}
}

// SetOnComplete registers a callback fired once per successful upload.
func (c *Coordinator) SetOnComplete(fn func(types.AttachmentMeta)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Upload stores one file and appends its metadata to the pending set.
// Safe to call from multiple goroutines; uploads interleave freely. The
// MIME type is sniffed from content when the caller does not provide one.
func (c *Coordinator) Upload(ctx context.Context, filename string, data []byte, mime string) (*types.AttachmentMeta, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file %q", types.ErrValidation, filename)
	}
	if mime == "" {
		mime = mimetype.Detect(data).String()
	}

	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()
	metrics.ActiveUploads.Inc()

	meta, err := c.uploader.UploadAttachment(ctx, types.AttachmentUpload{
		Filename: filename,
		MIME:     mime,
		Data:     data,
	})

	c.mu.Lock()
	c.inFlight--
	if err != nil {
		c.mu.Unlock()
		metrics.ActiveUploads.Dec()
		metrics.UploadFailures.Inc()
		c.log.Warn().Err(err).Str("filename", filename).Msg("attachment upload failed")
		return nil, err
	}
	c.pending = append(c.pending, *meta)
	onComplete := c.onComplete
	c.mu.Unlock()
	metrics.ActiveUploads.Dec()

	if onComplete != nil {
		onComplete(*meta)
	}
	c.log.Debug().Str("attachment", meta.ID).Str("mime", meta.MIME).Msg("attachment uploaded")
	return meta, nil
}

// UploadAll uploads several files concurrently and returns the first
// error, if any. Successful uploads keep their place in the pending set
// even when a sibling fails.
func (c *Coordinator) UploadAll(ctx context.Context, files []File) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		f := f
		g.Go(func() error {
			_, err := c.Upload(gctx, f.Filename, f.Data, "")
			return err
		})
	}
	return g.Wait()
}

// IsUploading reports whether at least one upload is in flight.
func (c *Coordinator) IsUploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// Pending returns a copy of the pending attachment set in append order.
func (c *Coordinator) Pending() []types.AttachmentMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.AttachmentMeta, len(c.pending))
	copy(out, c.pending)
	return out
}

// PendingIDs returns the ids of the pending attachments, for a send.
func (c *Coordinator) PendingIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.pending))
	for i, meta := range c.pending {
		ids[i] = meta.ID
	}
	return ids
}

// Reset clears the pending set after a successful send and increments the
// reset token, which upload widgets watch to discard their internal state.
func (c *Coordinator) Reset() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
	c.resetToken++
	return c.resetToken
}

// ResetToken returns the current reset token.
func (c *Coordinator) ResetToken() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetToken
}
