package bulk

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"
	"sync"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
)

type archiveEntry struct {
	name string
	data []byte
}

// Archive accumulates exported documents in memory, keyed by
// company/document-type. It is written out as a zip only after the export
// is terminal.
type Archive struct {
	mu      sync.Mutex
	entries map[string]archiveEntry
}

func NewArchive() *Archive {
	return &Archive{entries: make(map[string]archiveEntry)}
}

// ArchiveKey is the key a document is stored under.
func ArchiveKey(companyName string, slot payroll.DocumentSlot) string {
	return companyName + "/" + string(slot)
}

// Add stores data for a company and document type. The source path only
// contributes its extension to the entry name.
func (a *Archive) Add(companyName string, slot payroll.DocumentSlot, sourcePath string, data []byte) {
	key := ArchiveKey(companyName, slot)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[key] = archiveEntry{name: key + path.Ext(sourcePath), data: data}
}

func (a *Archive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

func (a *Archive) Keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys := make([]string, 0, len(a.entries))
	for k := range a.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteZip writes every entry, in key order, as a zip to w.
func (a *Archive) WriteZip(w io.Writer) error {
	keys := a.Keys()

	a.mu.Lock()
	defer a.mu.Unlock()

	zw := zip.NewWriter(w)
	for _, k := range keys {
		e := a.entries[k]
		f, err := zw.Create(e.name)
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", e.name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", e.name, err)
		}
	}
	return zw.Close()
}
