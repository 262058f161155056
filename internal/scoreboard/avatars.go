package scoreboard

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"mdiboard/internal/common"
)

type AvatarFetcher interface {
	FetchAvatar(ctx context.Context, url string) (image.Image, error)
}

// HTTPAvatars downloads character thumbnails
type HTTPAvatars struct {
	proxy *common.Proxy
}

func NewHTTPAvatars(client *http.Client, userAgent string) *HTTPAvatars {
	return &HTTPAvatars{proxy: common.NewProxy(client, map[string]string{"User-Agent": userAgent}, nil)}
}

func (a *HTTPAvatars) FetchAvatar(ctx context.Context, url string) (image.Image, error) {
	data, err := a.proxy.Request(ctx, url, true)
	if err != nil {
		return nil, err
	}
	avatar, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode avatar %s: %w", url, err)
	}
	return avatar, nil
}

func (a *HTTPAvatars) Close() {
	a.proxy.CloseIdleConnections()
}
