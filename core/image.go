package core

import "encoding/json"

// ImageSourceType is the wire discriminator of an image source.
type ImageSourceType string

const (
	ImageSourceBase64 ImageSourceType = "base64"
	ImageSourceURL    ImageSourceType = "url"
)

// ImageSource locates image bytes: either inlined (Base64Source) or
// referenced (URLSource).
type ImageSource interface {
	SourceType() ImageSourceType
	isImageSource()
}

// Base64Source inlines base64 encoded image data.
type Base64Source struct {
	MediaType string // e.g. "image/png"
	Data      string
}

// URLSource references an image by URL.
type URLSource struct {
	URL string
}

func (Base64Source) SourceType() ImageSourceType { return ImageSourceBase64 }
func (URLSource) SourceType() ImageSourceType    { return ImageSourceURL }

func (Base64Source) isImageSource() {}
func (URLSource) isImageSource()    {}

// NewBase64Image creates an image block with inlined data.
func NewBase64Image(mediaType, data string) ImageBlock {
	return ImageBlock{Source: Base64Source{MediaType: mediaType, Data: data}}
}

// NewURLImage creates an image block referencing url.
func NewURLImage(url string) ImageBlock {
	return ImageBlock{Source: URLSource{URL: url}}
}

// MarshalJSON emits {"type":"base64","media_type":...,"data":...}.
func (s Base64Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      ImageSourceType `json:"type"`
		MediaType string          `json:"media_type"`
		Data      string          `json:"data"`
	}{ImageSourceBase64, s.MediaType, s.Data})
}

// MarshalJSON emits {"type":"url","url":...}.
func (s URLSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type ImageSourceType `json:"type"`
		URL  string          `json:"url"`
	}{ImageSourceURL, s.URL})
}

func parseImageSource(path string, data []byte) (ImageSource, error) {
	if err := expectObject(path, data); err != nil {
		return nil, err
	}

	var raw struct {
		Type      *string `json:"type"`
		MediaType *string `json:"media_type"`
		Data      *string `json:"data"`
		URL       *string `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, WrapDecodeError(path, err)
	}

	if raw.Type == nil {
		return nil, NewMissingFieldError(joinField(path, "type"))
	}

	switch ImageSourceType(*raw.Type) {
	case ImageSourceBase64:
		if raw.MediaType == nil {
			return nil, NewMissingFieldError(joinField(path, "media_type"))
		}
		if raw.Data == nil {
			return nil, NewMissingFieldError(joinField(path, "data"))
		}
		return Base64Source{MediaType: *raw.MediaType, Data: *raw.Data}, nil
	case ImageSourceURL:
		if raw.URL == nil {
			return nil, NewMissingFieldError(joinField(path, "url"))
		}
		return URLSource{URL: *raw.URL}, nil
	default:
		return nil, NewUnknownDiscriminatorError(joinField(path, "type"), *raw.Type)
	}
}
