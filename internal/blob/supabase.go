package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"
)

const (
	supabaseFolder = "uploads"
	// searchLimit bounds the name search behind Exists; generated names are
	// unique enough that a match is always within the first page.
	searchLimit = 100
)

// Supabase keeps blobs in a Supabase Storage bucket under "uploads/". Every
// operation is a single storage API request.
type Supabase struct {
	client  *storage.Client
	bucket  string
	baseURL string
	apiURL  string
	now     func() time.Time
}

func NewSupabase(supabaseURL, serviceKey, bucket string) *Supabase {
	baseURL := strings.TrimRight(supabaseURL, "/")
	apiURL := baseURL + "/storage/v1"

	return &Supabase{
		client:  storage.NewClient(apiURL, serviceKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
		apiURL:  apiURL,
		now:     time.Now,
	}
}

func objectKey(name string) string {
	return supabaseFolder + "/" + name
}

// Put uploads without upsert, so a name collision fails instead of
// overwriting another order's file.
func (s *Supabase) Put(ctx context.Context, originalName string, r io.Reader, contentType string) (string, error) {
	name := GenerateName(originalName, s.now())

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := false
	_, err := s.client.UploadFile(s.bucket, objectKey(name), r, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return PathFor(name), nil
}

// Delete removes the object. The storage API answers with the removed
// objects, so an empty answer means there was nothing to remove.
func (s *Supabase) Delete(ctx context.Context, path string) error {
	name, err := NameFromPath(path)
	if err != nil {
		return err
	}
	removed, err := s.client.RemoveFile(s.bucket, []string{objectKey(name)})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if len(removed) == 0 {
		return fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return nil
}

func (s *Supabase) Exists(ctx context.Context, path string) (bool, error) {
	name, err := NameFromPath(path)
	if err != nil {
		return false, err
	}
	return s.exists(name)
}

// objectSearch is the list request body with the "search" filter that
// storage.FileSearchOptions does not expose.
type objectSearch struct {
	Prefix string         `json:"prefix"`
	Search string         `json:"search"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	SortBy storage.SortBy `json:"sortBy"`
}

func (s *Supabase) exists(name string) (bool, error) {
	body := objectSearch{
		Prefix: supabaseFolder,
		Search: name,
		Limit:  searchLimit,
		SortBy: storage.SortBy{Column: "name", Order: "asc"},
	}
	req, err := s.client.NewRequest(http.MethodPost, s.apiURL+"/object/list/"+s.bucket, &body)
	if err != nil {
		return false, fmt.Errorf("failed to build list request: %w", err)
	}

	var files []storage.FileObject
	if _, err := s.client.Do(req, &files); err != nil {
		return false, fmt.Errorf("failed to list files: %w", err)
	}
	for _, f := range files {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *Supabase) URL(path string) string {
	name, err := NameFromPath(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectKey(name))
}
