// Package datauri parses and builds RFC 2397 data URIs carrying images.
package datauri

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"github.com/menta2k/parkwise/pkg/types"
)

const scheme = "data:"

var (
	// ErrNotDataURI is returned when the input does not use the data: scheme
	ErrNotDataURI = errors.New("not a data URI")
	// ErrNotImage is returned when the declared media type is not image/*
	ErrNotImage = errors.New("declared media type is not an image")
	// ErrNotBase64 is returned when the payload is not base64 encoded
	ErrNotBase64 = errors.New("payload is not base64 encoded")
	// ErrEmptyPayload is returned when the URI carries no data
	ErrEmptyPayload = errors.New("payload is empty")
)

// DeclaresImage reports whether uri declares an image media type. It only
// inspects the header and never decodes the payload.
func DeclaresImage(uri string) bool {
	const prefix = scheme + "image/"
	return len(uri) >= len(prefix) && strings.EqualFold(uri[:len(prefix)], prefix)
}

// Decode parses an image data URI into its media type and raw bytes
func Decode(uri string) (types.ImagePayload, error) {
	if !strings.HasPrefix(strings.ToLower(uri), scheme) {
		return types.ImagePayload{}, ErrNotDataURI
	}
	if !DeclaresImage(uri) {
		return types.ImagePayload{}, ErrNotImage
	}

	// scheme and media type are case-insensitive, the payload is not
	if i := strings.IndexByte(uri, ','); i >= 0 {
		uri = strings.ToLower(uri[:i]) + uri[i:]
	}

	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return types.ImagePayload{}, fmt.Errorf("malformed data URI: %w", err)
	}
	if du.MediaType.Type != "image" || du.MediaType.Subtype == "" {
		return types.ImagePayload{}, ErrNotImage
	}
	if du.Encoding != dataurl.EncodingBase64 {
		return types.ImagePayload{}, ErrNotBase64
	}
	if len(du.Data) == 0 {
		return types.ImagePayload{}, ErrEmptyPayload
	}

	return types.ImagePayload{
		MediaType: du.MediaType.Type + "/" + du.MediaType.Subtype,
		Data:      du.Data,
	}, nil
}

// Encode builds a base64 data URI for the given image
func Encode(img types.ImagePayload) string {
	return dataurl.New(img.Data, img.MediaType).String()
}

// DecodedSize estimates the decoded payload size from the URI length without
// decoding it. It returns -1 when uri has no payload separator.
func DecodedSize(uri string) int {
	i := strings.IndexByte(uri, ',')
	if i < 0 {
		return -1
	}
	payload := strings.TrimRight(uri[i+1:], "=")
	return len(payload) * 3 / 4
}
