package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"github.com/spec-kit/ims-service/internal/config"
	"github.com/spec-kit/ims-service/internal/ids"
)

// ErrNotConfigured is returned when no asset store credentials are set.
var ErrNotConfigured = errors.New("asset store not configured")

const listPageSize = 500

// Asset is a durable object in the asset store.
type Asset struct {
	PublicID  string
	URL       string
	CreatedAt time.Time
}

// Cloudinary stores avatars in a Cloudinary account.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	logger *zap.Logger
}

// NewCloudinary builds a client from the three credential parts.
func NewCloudinary(cfg config.AssetStoreConfig, logger *zap.Logger) (*Cloudinary, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, logger: logger}, nil
}

// folderPrefix is the public id prefix for assets in folder.
func folderPrefix(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

// Upload stores data under folder and returns its secure URL. The folder is part of
// the public id so listing by prefix works with fixed and dynamic folder accounts.
func (c *Cloudinary) Upload(ctx context.Context, folder string, data []byte) (*Asset, error) {
	publicID := folderPrefix(folder) + ids.New()
	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: publicID,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("upload %s: %s", publicID, res.Error.Message)
	}
	if res.SecureURL == "" {
		return nil, fmt.Errorf("upload %s: empty secure url", publicID)
	}

	c.logger.Debug("asset uploaded", zap.String("public_id", res.PublicID), zap.String("url", res.SecureURL))
	return &Asset{PublicID: res.PublicID, URL: res.SecureURL, CreatedAt: res.CreatedAt}, nil
}

// ListOlderThan pages through folder and returns assets created before cutoff.
func (c *Cloudinary) ListOlderThan(ctx context.Context, folder string, cutoff time.Time) ([]Asset, error) {
	params := admin.AssetsParams{
		Prefix:     folderPrefix(folder),
		MaxResults: listPageSize,
	}

	var result []Asset
	for {
		res, err := c.cld.Admin.Assets(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}
		if res.Error.Message != "" {
			return nil, fmt.Errorf("list assets: %s", res.Error.Message)
		}
		for _, a := range res.Assets {
			if a.CreatedAt.Before(cutoff) {
				result = append(result, Asset{PublicID: a.PublicID, URL: a.SecureURL, CreatedAt: a.CreatedAt})
			}
		}
		if res.NextCursor == "" {
			return result, nil
		}
		params.NextCursor = res.NextCursor
	}
}

// Delete removes an asset by public id. A missing asset is not an error.
func (c *Cloudinary) Delete(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("destroy %s: %s", publicID, res.Error.Message)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("destroy %s: unexpected result %q", publicID, res.Result)
	}
	return nil
}
