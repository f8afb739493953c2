package mergesvc

import (
	"os"

	"github.com/cockroachdb/pebble"
)

// stage is the duplicate-id resolution staging area: a document id can
// surface under more than one by-id root during lost-and-found, and this
// is what remembers, across every root processed so far, the best
// revision seen for that id, so a later (worse) copy under a different
// root is never allowed to overwrite a winner already merged.
type stage struct {
	db   *pebble.DB
	path string
}

// openStage opens (creating if necessary) a pebble instance at dir to
// track merge progress for one lost-and-found run.
func openStage(dir string) (*stage, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &stage{db: db, path: dir}, nil
}

// offer records candidate as the document seen for id, returning true if
// it is the new winner (either no prior copy was staged, or it beats the
// one that was). Callers should only write candidate forward to the
// target database when offer reports a win.
func (s *stage) offer(id []byte, candidate Doc) (bool, error) {
	existingBytes, closer, err := s.db.Get(id)
	if err == pebble.ErrNotFound {
		return true, s.db.Set(id, EncodeDocValue(candidate), pebble.NoSync)
	}
	if err != nil {
		return false, err
	}
	existing, decodeErr := DecodeDocValue(existingBytes)
	closer.Close()
	if decodeErr != nil {
		return false, decodeErr
	}
	if !candidate.Wins(existing) {
		return false, nil
	}
	return true, s.db.Set(id, EncodeDocValue(candidate), pebble.NoSync)
}

// close releases the pebble handle and removes its on-disk staging
// directory; staging state never needs to outlive a single merge run.
func (s *stage) close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	return os.RemoveAll(s.path)
}
