package ingest

import (
	"smartcache/app/database"
)

// fakeItemRepo is an in-memory ItemRepository for adapter tests.
type fakeItemRepo struct {
	created  []database.Item
	existing map[string]bool
}

var _ database.ItemRepository = (*fakeItemRepo)(nil)

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{existing: make(map[string]bool)}
}

func (f *fakeItemRepo) seed(fingerprint string) {
	f.existing[fingerprint] = true
}

func (f *fakeItemRepo) HasFingerprint(fingerprint string) (bool, error) {
	return f.existing[fingerprint], nil
}

func (f *fakeItemRepo) CreateItem(item database.Item) error {
	if f.existing[item.Fingerprint] {
		return database.ErrDuplicateItem
	}
	f.existing[item.Fingerprint] = true
	f.created = append(f.created, item)
	return nil
}

func (f *fakeItemRepo) GetItem(id string) (*database.Item, error) {
	for i := range f.created {
		if f.created[i].ID == id {
			return &f.created[i], nil
		}
	}
	return nil, nil
}

func (f *fakeItemRepo) GetItems(filter database.ItemFilter) ([]database.Item, error) {
	var items []database.Item
	for _, item := range f.created {
		if filter.CachedOnly && item.StorageURL == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (f *fakeItemRepo) AttachStorageURL(itemID, storageURL, provider string, sizeBytes int64) error {
	return nil
}

func (f *fakeItemRepo) GetItemStats() (int, int, error) {
	cached := 0
	for _, item := range f.created {
		if item.StorageURL != "" {
			cached++
		}
	}
	return len(f.created), cached, nil
}
