package provision

import (
	"context"
	"log"
	"sync"

	"github.com/kempei/reservalock/internal/roster"
)

// FileRoster serves registration data from an exported roster CSV. The
// export is refreshed out of band, so every lookup re-reads the file.
type FileRoster struct {
	path string
	mu   sync.Mutex
}

// NewFileRoster creates a roster source backed by the CSV at path.
func NewFileRoster(path string) *FileRoster {
	return &FileRoster{path: path}
}

// Candidates returns every registration row carrying the email, in sheet
// order.
func (f *FileRoster) Candidates(ctx context.Context, email string) ([]roster.RegistrationRow, error) {
	rows, err := f.load()
	if err != nil {
		return nil, err
	}
	var candidates []roster.RegistrationRow
	for _, r := range rows {
		if r.Email == email {
			candidates = append(candidates, r)
		}
	}
	return candidates, nil
}

// Prune receives the duplicate rows the dedup pass flagged. The CSV is a
// read-only export, so the rows are logged for cleanup at the source
// sheet rather than rewritten here.
func (f *FileRoster) Prune(ctx context.Context, email string, rows []int) error {
	log.Printf("roster: duplicate rows for %s flagged for removal at source: %v", email, rows)
	return nil
}

// Snapshot loads the whole roster and builds the user/member indexes.
func (f *FileRoster) Snapshot(ctx context.Context) (*roster.Snapshot, error) {
	rows, err := f.load()
	if err != nil {
		return nil, err
	}
	return roster.BuildSnapshot(rows), nil
}

func (f *FileRoster) load() ([]roster.RegistrationRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return roster.LoadFile(f.path)
}
