package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GetSharedGallery fetches one page of a gallery through its share token.
// Password-protected galleries answer with RequiresPassword set on the
// returned *Error until UnlockSharedGallery has established an unlock
// session; the session lives in the client's cookie jar, so the unlock
// and the retry must use the same client.
func (c *Client) GetSharedGallery(ctx context.Context, shareToken string, page, limit int) (*SharedGalleryData, error) {
	if shareToken == "" {
		return nil, fmt.Errorf("share token is required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/shared/galleries/" + url.PathEscape(shareToken),
		query:  query,
	})
	if err != nil {
		return nil, err
	}

	var data SharedGalleryData
	if err := decodeData(env, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// UnlockSharedGallery submits the password for a protected shared gallery.
// On success the backend sets an unlock cookie on the client's jar and
// subsequent GetSharedGallery calls pass the gate.
func (c *Client) UnlockSharedGallery(ctx context.Context, shareToken, password string) error {
	if shareToken == "" {
		return fmt.Errorf("share token is required")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/shared/galleries/" + url.PathEscape(shareToken) + "/unlock",
		body:   map[string]string{"password": password},
	})
	return err
}

// ListPublicGalleries returns one page of the public gallery site index.
func (c *Client) ListPublicGalleries(ctx context.Context, page int) (*PublicGalleryList, error) {
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/gallery-site/galleries",
		query:  query,
	})
	if err != nil {
		return nil, err
	}

	var data PublicGalleryList
	if err := decodeData(env, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPublicGallery fetches one gallery of the public gallery site together
// with a page of its images.
func (c *Client) GetPublicGallery(ctx context.Context, galleryID int64, page int) (*PublicGalleryDetail, error) {
	if galleryID <= 0 {
		return nil, fmt.Errorf("gallery id is required")
	}
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	env, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/gallery-site/galleries/" + strconv.FormatInt(galleryID, 10),
		query:  query,
	})
	if err != nil {
		return nil, err
	}

	var data PublicGalleryDetail
	if err := decodeData(env, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
