package chrondb

import (
	"context"
	"fmt"

	"github.com/chrondb/chrondb/internal/bundle"
)

// ExportBundle writes a Git bundle containing refs at bundlePath (full, or
// incremental from baseCommit when non-empty) and its manifest sidecar.
func (e *Engine) ExportBundle(ctx context.Context, bundlePath string, refs []string, baseCommit string) (bundle.Manifest, error) {
	manifest, err := bundle.Export(ctx, e.store.Dir(), bundlePath, refs, baseCommit, e.now())
	if err != nil {
		return bundle.Manifest{}, err
	}
	if err := bundle.WriteManifest(bundle.ManifestPath(bundlePath), manifest); err != nil {
		return bundle.Manifest{}, err
	}
	return manifest, nil
}

// ImportBundle fetches every branch ref bundlePath carries into the
// object store and rebuilds the secondary index for every branch, since
// an import can introduce documents (and branches) the in-memory index
// has never seen.
func (e *Engine) ImportBundle(ctx context.Context, bundlePath string) (bundle.Manifest, error) {
	manifest, err := bundle.Import(ctx, e.store.Dir(), bundlePath, e.now())
	if err != nil {
		return bundle.Manifest{}, err
	}
	if err := e.rebuildAllBranches(); err != nil {
		return bundle.Manifest{}, fmt.Errorf("chrondb: rebuild index after import: %w", err)
	}
	return manifest, nil
}
