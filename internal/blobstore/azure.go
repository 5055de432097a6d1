package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"recogni/internal/config"
)

// Azure is one Azure Blob Storage container.
type Azure struct {
	container azblob.ContainerURL
	account   string
	name      string
}

// NewAzure builds a container client from a connection string or an
// account name and key.
func NewAzure(cfg config.Blob, container string) (*Azure, error) {
	account := cfg.AccountName
	key := cfg.AccountKey
	endpoint := strings.TrimSpace(cfg.Endpoint)
	sas := ""
	if cfg.ConnectionString != "" {
		cs, err := ParseConnectionString(cfg.ConnectionString)
		if err != nil {
			return nil, err
		}
		account, key, sas = cs.AccountName, cs.AccountKey, cs.SharedAccessSignature
		if endpoint == "" {
			endpoint = cs.BlobEndpoint()
		}
	}
	if endpoint == "" {
		if account == "" {
			return nil, errors.New("azure blob: account name is required")
		}
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", account)
	}

	var credential azblob.Credential
	if key != "" {
		shared, err := azblob.NewSharedKeyCredential(account, key)
		if err != nil {
			return nil, fmt.Errorf("azure blob credentials: %w", err)
		}
		credential = shared
	} else if sas != "" {
		credential = azblob.NewAnonymousCredential()
		endpoint = strings.TrimRight(endpoint, "/") + "?" + strings.TrimPrefix(sas, "?")
	} else {
		return nil, errors.New("azure blob: account key or shared access signature is required")
	}

	serviceURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("azure blob endpoint %q: %w", endpoint, err)
	}
	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	service := azblob.NewServiceURL(*serviceURL, pipeline)
	return &Azure{
		container: service.NewContainerURL(container),
		account:   account,
		name:      container,
	}, nil
}

func (a *Azure) Location() string {
	return fmt.Sprintf("azure://%s/%s", a.account, a.name)
}

func (a *Azure) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for marker := (azblob.Marker{}); marker.NotDone(); {
		page, err := a.container.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{Prefix: prefix})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", a.Location(), err)
		}
		marker = page.NextMarker
		for _, item := range page.Segment.BlobItems {
			obj := Object{Name: item.Name, LastModified: item.Properties.LastModified}
			if item.Properties.ContentLength != nil {
				obj.Size = *item.Properties.ContentLength
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (a *Azure) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := a.container.NewBlockBlobURL(name).GetProperties(ctx, azblob.BlobAccessConditions{}, azblob.ClientProvidedKeyOptions{})
	if err == nil {
		return true, nil
	}
	if azureNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s/%s: %w", a.Location(), name, err)
}

func (a *Azure) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	resp, err := a.container.NewBlockBlobURL(name).Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		if azureNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", a.Location(), name, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s/%s: %w", a.Location(), name, err)
	}
	return resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3}), nil
}

func (a *Azure) Upload(ctx context.Context, name string, r io.Reader, _ int64) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := azblob.UploadStreamToBlockBlob(ctx, r, a.container.NewBlockBlobURL(name), azblob.UploadStreamToBlockBlobOptions{
		BufferSize: 4 * 1024 * 1024,
		MaxBuffers: 4,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", a.Location(), name, err)
	}
	return nil
}

func (a *Azure) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := a.container.NewBlockBlobURL(name).Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		if azureNotFound(err) {
			return fmt.Errorf("%s/%s: %w", a.Location(), name, ErrNotFound)
		}
		return fmt.Errorf("delete %s/%s: %w", a.Location(), name, err)
	}
	return nil
}

func azureNotFound(err error) bool {
	var storageErr azblob.StorageError
	if !errors.As(err, &storageErr) {
		return false
	}
	if storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
		return true
	}
	resp := storageErr.Response()
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// ConnectionString holds the fields of an Azure storage connection string.
type ConnectionString struct {
	Protocol              string
	AccountName           string
	AccountKey            string
	EndpointSuffix        string
	Endpoint              string
	SharedAccessSignature string
}

// ParseConnectionString splits "Key=Value;..." pairs. Values may contain '='.
func ParseConnectionString(raw string) (ConnectionString, error) {
	cs := ConnectionString{Protocol: "https", EndpointSuffix: "core.windows.net"}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return ConnectionString{}, fmt.Errorf("azure connection string: malformed segment %q", part)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "defaultendpointsprotocol":
			cs.Protocol = value
		case "accountname":
			cs.AccountName = value
		case "accountkey":
			cs.AccountKey = value
		case "endpointsuffix":
			cs.EndpointSuffix = value
		case "blobendpoint":
			cs.Endpoint = value
		case "sharedaccesssignature":
			cs.SharedAccessSignature = value
		}
	}
	if cs.AccountName == "" && cs.Endpoint == "" {
		return ConnectionString{}, errors.New("azure connection string: AccountName or BlobEndpoint is required")
	}
	return cs, nil
}

// BlobEndpoint returns the blob service URL.
func (c ConnectionString) BlobEndpoint() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return fmt.Sprintf("%s://%s.blob.%s", c.Protocol, c.AccountName, c.EndpointSuffix)
}
