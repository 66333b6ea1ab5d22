// Copyright 2024 The Bit Authors
// This file is part of bit.
//
// Package importer fetches missing objects into the local objstore.Store
// during checkout (§4.6 steps "sync new components" and "import missing
// targets"), retrying transient fetch failures the way
// turbo/snapshotsync.WaitForDownloader polls a remote downloader service,
// adapted here to bounded exponential backoff around each batch fetch rather
// than an unbounded progress-ticker loop.
package importer

import (
	"context"

	"github.com/c2h5oh/datasize"
	"github.com/cenkalti/backoff/v4"
	perrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/objstore"
)

// RemoteFetcher retrieves the raw, already-canonicalized bytes for a missing
// object from a remote, by hash. Concrete transports (HTTP, git-style smart
// protocol, local mirror) implement this.
type RemoteFetcher interface {
	Fetch(ctx context.Context, refs []common.Ref) (map[common.Ref][]byte, error)
}

// retryingImporter adapts a RemoteFetcher to objstore.Importer, retrying the
// whole batch fetch with exponential backoff before giving up.
type retryingImporter struct {
	ctx     context.Context
	fetcher RemoteFetcher
	policy  backoff.BackOff
	log     *zap.Logger

	bytesRead datasize.ByteSize
}

func (r *retryingImporter) FetchMany(refs []common.Ref) (map[common.Ref][]byte, error) {
	var fetched map[common.Ref][]byte
	op := func() error {
		f, err := r.fetcher.Fetch(r.ctx, refs)
		if err != nil {
			return err
		}
		fetched = f
		return nil
	}
	policy := r.policy
	if policy == nil {
		eb := backoff.NewExponentialBackOff()
		policy = backoff.WithMaxRetries(eb, 5)
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, r.ctx)); err != nil {
		return nil, perrors.Wrap(err, "importer: fetch batch")
	}
	for _, raw := range fetched {
		r.bytesRead += datasize.ByteSize(len(raw))
	}
	return fetched, nil
}

// Report summarizes one import run, for the checkout engine's final summary
// (§4.6 step "report").
type Report struct {
	Imported  int
	BytesRead datasize.ByteSize
}

// Importer drives a Store's ImportMany against a RemoteFetcher, with bounded
// exponential backoff on the underlying fetch (§4.6: "import missing
// targets", "sync new components").
type Importer struct {
	store   *objstore.Store
	fetcher RemoteFetcher
	log     *zap.Logger
}

// New builds an Importer over store; each ImportMissing call wires its
// retrying fetcher into store via SetImporter. log may be nil, in which case
// zap.NewNop() is used.
func New(store *objstore.Store, fetcher RemoteFetcher, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, fetcher: fetcher, log: log}
}

// ImportMissing fetches and stores every ref in want that the store doesn't
// already have. The missing refs are fetched as one batch: if that fetch
// still fails after retries, the returned error slice holds one error for
// the whole batch; otherwise it holds one error per record that could not be
// written. A ref the remote does not return is not reported as an error (it
// is simply not counted in Imported) — objstore.Store.ImportMany's own
// "missing remotely isn't fatal" contract.
func (im *Importer) ImportMissing(ctx context.Context, want []common.Ref, policy backoff.BackOff) (Report, []error) {
	var rep Report
	var missing []common.Ref
	for _, h := range want {
		if !im.store.Has(h) {
			missing = append(missing, h)
		}
	}
	if len(missing) == 0 {
		return rep, nil
	}

	ri := &retryingImporter{ctx: ctx, fetcher: im.fetcher, policy: policy, log: im.log}
	im.store.SetImporter(ri)
	errs := im.store.ImportMany(missing)
	rep.BytesRead = ri.bytesRead

	for _, h := range missing {
		if im.store.Has(h) {
			rep.Imported++
		}
	}
	im.log.Info("import complete", zap.Int("requested", len(missing)), zap.Int("stored", rep.Imported), zap.Int("errors", len(errs)))
	return rep, errs
}

// SyncNewComponents imports whichever of candidateHeads the local store does
// not hold yet — the §4.6 "sync new components" step, run before
// per-component classification. It is ImportMissing with the default retry
// policy; the checkout engine passes the model heads of the requested ids.
func (im *Importer) SyncNewComponents(ctx context.Context, candidateHeads []common.Ref) (Report, []error) {
	return im.ImportMissing(ctx, candidateHeads, nil)
}
