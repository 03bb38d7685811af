package imagesvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/marking"
)

// client talks to the page render service, which owns the scanned images
// and produces rotated variants on demand.
type client struct {
	baseURL string
	http    *http.Client
}

var _ marking.ImageRenderer = (*client)(nil)

func NewClient(conf *core.Config) marking.ImageRenderer {
	return &client{
		baseURL: conf.Marking.RenderServer,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// rotateResponse is the render service's answer; URLs are empty when the
// source image could not be processed.
type rotateResponse struct {
	ImageURL          string `json:"imageurl"`
	AnonymousImageURL string `json:"anonymousimageurl"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
}

func (c *client) Rotate(ctx context.Context, p marking.Page) (marking.Page, error) {
	q := make(url.Values)
	q.Set("submission", strconv.Itoa(p.SubmissionID))
	q.Set("page", strconv.Itoa(p.PageNo))
	q.Set("degrees", "90")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rotate?"+q.Encode(), nil)
	if err != nil {
		return marking.Page{}, errors.Wrap(err, "building rotate request")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return marking.Page{}, errors.Wrap(err, "calling render service")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return marking.Page{}, errors.Errorf("render service: unexpected status %d", res.StatusCode)
	}

	var body rotateResponse
	if err = json.NewDecoder(res.Body).Decode(&body); err != nil {
		return marking.Page{}, errors.Wrap(err, "decoding render response")
	}

	p.ImageURL = body.ImageURL
	p.AnonymousImageURL = body.AnonymousImageURL
	p.Width = body.Width
	p.Height = body.Height
	return p, nil
}
