package service

import (
	"bridge4er_backend/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrRemoteNotFound marks a listing or download target that does not exist on
// the remote store. The sync engine treats a missing folder as empty rather
// than as a failure.
var ErrRemoteNotFound = errors.New("remote path not found")

// FileEntry is one remote object as the sync engine sees it.
type FileEntry struct {
	Path     string
	IsDir    bool
	Size     int64
	Modified time.Time
}

// RemoteFileStore is the read side of the content library. Paths follow the
// Dropbox convention: "/"-rooted, "/"-separated, case-insensitive matching.
type RemoteFileStore interface {
	List(ctx context.Context, path string, recursive bool) ([]FileEntry, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

// DropboxFileStore reads the content library from a Dropbox app folder.
type DropboxFileStore struct {
	client files.Client
}

func NewDropboxFileStore(cfg *config.StorageConfig) *DropboxFileStore {
	dbxCfg := dropbox.Config{
		Token: cfg.DropboxAccessToken,
	}
	return &DropboxFileStore{client: files.New(dbxCfg)}
}

func dropboxNotFound(err error) bool {
	var listErr files.ListFolderAPIError
	if errors.As(err, &listErr) {
		return listErr.EndpointError != nil &&
			listErr.EndpointError.Path != nil &&
			listErr.EndpointError.Path.Tag == files.LookupErrorNotFound
	}
	var dlErr files.DownloadAPIError
	if errors.As(err, &dlErr) {
		return dlErr.EndpointError != nil &&
			dlErr.EndpointError.Path != nil &&
			dlErr.EndpointError.Path.Tag == files.LookupErrorNotFound
	}
	return strings.Contains(err.Error(), "not_found")
}

func (s *DropboxFileStore) List(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	arg := files.NewListFolderArg(path)
	arg.Recursive = recursive

	res, err := s.client.ListFolder(arg)
	if err != nil {
		if dropboxNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	var entries []FileEntry
	appendEntries := func(metadata []files.IsMetadata) {
		for _, item := range metadata {
			switch meta := item.(type) {
			case *files.FileMetadata:
				entryPath := meta.PathDisplay
				if entryPath == "" {
					entryPath = meta.PathLower
				}
				entries = append(entries, FileEntry{
					Path:     entryPath,
					Size:     int64(meta.Size),
					Modified: meta.ServerModified,
				})
			case *files.FolderMetadata:
				entryPath := meta.PathDisplay
				if entryPath == "" {
					entryPath = meta.PathLower
				}
				entries = append(entries, FileEntry{Path: entryPath, IsDir: true})
			}
		}
	}

	appendEntries(res.Entries)
	for res.HasMore {
		res, err = s.client.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return nil, fmt.Errorf("list continue %s: %w", path, err)
		}
		appendEntries(res.Entries)
	}
	return entries, nil
}

func (s *DropboxFileStore) Download(ctx context.Context, path string) ([]byte, error) {
	_, content, err := s.client.Download(files.NewDownloadArg(path))
	if err != nil {
		if dropboxNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
		}
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	defer content.Close()

	raw, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return raw, nil
}

// MinioFileStore reads the content library from a MinIO (or any S3-compatible)
// bucket. Object keys mirror the remote tree without the leading slash.
type MinioFileStore struct {
	client *minio.Client
	bucket string
}

func NewMinioFileStore(cfg *config.StorageConfig) (*MinioFileStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioFileStore{client: client, bucket: cfg.MinioBucket}, nil
}

func objectKey(path string) string {
	return strings.TrimPrefix(path, "/")
}

func (s *MinioFileStore) List(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	prefix := objectKey(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []FileEntry
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list %s: %w", path, object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			entries = append(entries, FileEntry{Path: "/" + strings.TrimSuffix(object.Key, "/"), IsDir: true})
			continue
		}
		entries = append(entries, FileEntry{
			Path:     "/" + object.Key,
			Size:     object.Size,
			Modified: object.LastModified,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
	}
	return entries, nil
}

func (s *MinioFileStore) Download(ctx context.Context, path string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, objectKey(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	defer object.Close()

	raw, err := io.ReadAll(object)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
		}
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return raw, nil
}

// OSSFileStore reads the content library from an Aliyun OSS bucket.
type OSSFileStore struct {
	client *oss.Client
	bucket string
}

func NewOSSFileStore(cfg *config.StorageConfig) (*OSSFileStore, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSFileStore{client: client, bucket: cfg.OSSBucket}, nil
}

func (s *OSSFileStore) List(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	bucket, err := s.client.Bucket(s.bucket)
	if err != nil {
		return nil, err
	}

	prefix := objectKey(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var entries []FileEntry
	marker := ""
	for {
		res, err := bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker))
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", path, err)
		}
		for _, object := range res.Objects {
			if strings.HasSuffix(object.Key, "/") {
				entries = append(entries, FileEntry{Path: "/" + strings.TrimSuffix(object.Key, "/"), IsDir: true})
				continue
			}
			entries = append(entries, FileEntry{
				Path:     "/" + object.Key,
				Size:     object.Size,
				Modified: object.LastModified,
			})
		}
		if !res.IsTruncated {
			break
		}
		marker = res.NextMarker
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
	}
	return entries, nil
}

func (s *OSSFileStore) Download(ctx context.Context, path string) ([]byte, error) {
	bucket, err := s.client.Bucket(s.bucket)
	if err != nil {
		return nil, err
	}
	body, err := bucket.GetObject(objectKey(path))
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
		}
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return raw, nil
}

// LocalFileStore maps the remote tree onto a local directory. Used in
// development and by the test suite.
type LocalFileStore struct {
	Root string
}

func (s *LocalFileStore) localPath(path string) string {
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

func (s *LocalFileStore) List(ctx context.Context, path string, recursive bool) ([]FileEntry, error) {
	root := s.localPath(path)
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
	}

	cleanPrefix := "/" + strings.Trim(path, "/")
	if cleanPrefix == "/" {
		cleanPrefix = ""
	}

	var entries []FileEntry
	err = filepath.WalkDir(root, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if walkPath == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, walkPath)
		if relErr != nil {
			return relErr
		}
		remotePath := cleanPrefix + "/" + filepath.ToSlash(rel)
		if d.IsDir() {
			entries = append(entries, FileEntry{Path: remotePath, IsDir: true})
			if !recursive {
				return fs.SkipDir
			}
			return nil
		}
		fileInfo, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		entries = append(entries, FileEntry{
			Path:     remotePath,
			Size:     fileInfo.Size(),
			Modified: fileInfo.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (s *LocalFileStore) Download(ctx context.Context, path string) ([]byte, error) {
	raw, err := os.ReadFile(s.localPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRemoteNotFound, path)
		}
		return nil, err
	}
	return raw, nil
}

// NewRemoteFileStore builds the configured store. Unknown or unconfigured
// types fall back to the local store so development setups work out of the
// box.
func NewRemoteFileStore(cfg *config.Config) (RemoteFileStore, error) {
	switch cfg.Storage.Type {
	case "dropbox":
		return NewDropboxFileStore(&cfg.Storage), nil
	case "minio":
		return NewMinioFileStore(&cfg.Storage)
	case "oss":
		return NewOSSFileStore(&cfg.Storage)
	default:
		root := cfg.Storage.LocalPath
		if root == "" {
			root = "./content"
		}
		return &LocalFileStore{Root: root}, nil
	}
}
