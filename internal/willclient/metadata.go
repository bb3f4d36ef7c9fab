package willclient

import (
	"bytes"
	"encoding/json"
	"strings"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// MergeImage returns metadata with imageURL added as the top-level "image"
// field. Metadata must be a JSON object; empty metadata means {}. A key
// already present in metadata wins over imageURL, and an empty imageURL
// adds nothing. Key order of metadata is kept.
func MergeImage(metadata, imageURL string) (string, error) {
	if strings.TrimSpace(metadata) == "" {
		metadata = "{}"
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(metadata), &obj); err != nil {
		return "", tmerr.Because(tmerr.ErrInvalidMetadata, err)
	}
	if obj == nil {
		return "", tmerr.ErrInvalidMetadata
	}

	compact := &bytes.Buffer{}
	if err := json.Compact(compact, []byte(metadata)); err != nil {
		return "", tmerr.Because(tmerr.ErrInvalidMetadata, err)
	}

	if _, ok := obj["image"]; ok || imageURL == "" {
		return compact.String(), nil
	}

	quoted, err := marshalString(imageURL)
	if err != nil {
		return "", err
	}
	rest := strings.TrimPrefix(compact.String(), "{")
	if rest == "}" {
		return `{"image":` + quoted + "}", nil
	}
	return `{"image":` + quoted + "," + rest, nil
}

// ImageFromMetadata returns the "image" field of a metadata object, or ""
// when metadata is not a JSON object or has no non-empty string image.
func ImageFromMetadata(metadata string) string {
	var obj map[string]json.RawMessage
	if json.Unmarshal([]byte(metadata), &obj) != nil {
		return ""
	}
	var image string
	if json.Unmarshal(obj["image"], &image) != nil {
		return ""
	}
	return image
}

func marshalString(s string) (string, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
