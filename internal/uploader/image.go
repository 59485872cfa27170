package uploader

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

// maxDimension is the longest edge accepted by the image hosts; larger
// images are downscaled before upload.
const maxDimension = 4096

// normalizeImage sniffs the payload's format and downscales oversized
// images to JPEG. Payloads that don't decode pass through untouched with a
// jpeg name — the provider decides whether to reject them.
func normalizeImage(data []byte) Image {
	mime := http.DetectContentType(data)
	format := "jpeg"
	if strings.HasPrefix(mime, "image/") {
		format = strings.TrimPrefix(mime, "image/")
	} else {
		mime = "image/jpeg"
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("image payload not decodable, uploading as-is", "error", err)
		return Image{Data: data, Format: format, MIMEType: mime}
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxDimension && bounds.Dy() <= maxDimension {
		return Image{Data: data, Format: format, MIMEType: mime}
	}

	if bounds.Dx() >= bounds.Dy() {
		img = imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		slog.Warn("image re-encode failed, uploading original", "error", err)
		return Image{Data: data, Format: format, MIMEType: mime}
	}

	slog.Debug("image downscaled for upload",
		"orig_w", bounds.Dx(), "orig_h", bounds.Dy(), "bytes", buf.Len())
	return Image{Data: buf.Bytes(), Format: "jpeg", MIMEType: "image/jpeg"}
}
