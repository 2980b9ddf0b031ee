package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	_ "github.com/sergeymakinen/go-bmp"
	_ "github.com/sergeymakinen/go-ico"
	"golang.org/x/image/draw"

	"github.com/dicklesworth/agentmail/internal/types"
)

// AttachmentPipeline turns referenced filesystem paths into archived,
// possibly re-encoded artifacts and rewrites inline markdown image
// references to point at the archived location.
type AttachmentPipeline struct {
	// ProjectBaseDir is the absolute directory explicit/inline paths are
	// resolved against; paths escaping it are rejected.
	ProjectBaseDir string
	// MaxDimension bounds the longer side of a raster image before
	// re-encoding; 0 disables resizing.
	MaxDimension int
	WebPQuality  int

	store attachmentStore
}

// attachmentStore is the narrow subset of the archive queue the pipeline
// needs, kept as an interface so tests can substitute an in-memory fake.
type attachmentStore interface {
	StoreAttachment(data []byte, ext string) (string, error)
}

func NewAttachmentPipeline(baseDir string, maxDimension, webpQuality int, store attachmentStore) *AttachmentPipeline {
	return &AttachmentPipeline{ProjectBaseDir: baseDir, MaxDimension: maxDimension, WebPQuality: webpQuality, store: store}
}

var inlineImageRef = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// Process resolves every inline `![alt](src)` reference and every
// explicit attachment path, converts raster images to WebP when the
// recipient/sender attachments policy calls for conversion, and returns
// the (possibly rewritten) body plus attachment metadata for persistence.
// An inline reference that cannot be resolved or read (outside
// ProjectBaseDir, missing) is left in the body unchanged and not
// attached; an explicit attachment path that fails the same way makes
// Process return an error.
func (p *AttachmentPipeline) Process(body string, explicitPaths []string, policy types.AttachmentsPolicy) (string, []types.Attachment, error) {
	var attachments []types.Attachment

	newBody := inlineImageRef.ReplaceAllStringFunc(body, func(match string) string {
		groups := inlineImageRef.FindStringSubmatch(match)
		alt, src := groups[1], groups[2]
		if isRemoteRef(src) {
			return match
		}
		att, rewritten, err := p.processOne(src, alt, policy)
		if err != nil {
			return match // leave the original markdown untouched on failure
		}
		attachments = append(attachments, att)
		return rewritten
	})

	for _, path := range explicitPaths {
		att, _, err := p.processOne(path, filepath.Base(path), policy)
		if err != nil {
			return "", nil, fmt.Errorf("process attachment %q: %w", path, err)
		}
		attachments = append(attachments, att)
	}

	return newBody, attachments, nil
}

func isRemoteRef(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "data:")
}

func (p *AttachmentPipeline) processOne(src, alt string, policy types.AttachmentsPolicy) (types.Attachment, string, error) {
	resolved, err := p.resolve(src)
	if err != nil {
		return types.Attachment{}, "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return types.Attachment{}, "", err
	}

	img, format, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil || policy == types.AttachmentsFile {
		// Not a decodable raster, or the policy says store as-is: archive
		// the raw bytes unchanged.
		rel, err := p.store.StoreAttachment(data, filepath.Ext(resolved))
		if err != nil {
			return types.Attachment{}, "", err
		}
		att := types.Attachment{Path: rel, Type: types.AttachmentRawFile, Bytes: int64(len(data)), Name: filepath.Base(resolved)}
		return att, fmt.Sprintf("![%s](%s)", alt, rel), nil
	}

	encoded, err := p.reencode(img, format)
	if err != nil {
		return types.Attachment{}, "", err
	}

	if policy == types.AttachmentsInline && len(encoded) < 32*1024 {
		dataURI := "data:image/webp;base64," + base64.StdEncoding.EncodeToString(encoded)
		att := types.Attachment{Type: types.AttachmentInlineImage, Bytes: int64(len(encoded)), MimeType: "image/webp", Name: filepath.Base(resolved)}
		return att, fmt.Sprintf("![%s](%s)", alt, dataURI), nil
	}

	rel, err := p.store.StoreAttachment(encoded, ".webp")
	if err != nil {
		return types.Attachment{}, "", err
	}
	att := types.Attachment{Path: rel, Type: types.AttachmentFile, Bytes: int64(len(encoded)), MimeType: "image/webp", Name: filepath.Base(resolved)}
	return att, fmt.Sprintf("![%s](%s)", alt, rel), nil
}

// reencode resamples (when the source exceeds MaxDimension) and encodes
// to WebP. Images already within the dimension ceiling skip straight to
// encoding. Oversized sources with both sides at most 1600px are
// downsampled with nfnt/resize's Lanczos3; a source with either side over
// 1600px gets x/image/draw's CatmullRom scaler instead.
func (p *AttachmentPipeline) reencode(img image.Image, format string) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if p.MaxDimension > 0 && (w > p.MaxDimension || h > p.MaxDimension) {
		if w > 1600 || h > 1600 {
			img = scaleCatmullRom(img, p.MaxDimension)
		} else {
			if w >= h {
				img = resize.Resize(uint(p.MaxDimension), 0, img, resize.Lanczos3)
			} else {
				img = resize.Resize(0, uint(p.MaxDimension), img, resize.Lanczos3)
			}
		}
	}

	var buf bytes.Buffer
	quality := float32(p.WebPQuality)
	if quality <= 0 {
		quality = 80
	}
	if err := webp.Encode(&buf, img, &webp.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode webp (source format %s): %w", format, err)
	}
	return buf.Bytes(), nil
}

func scaleCatmullRom(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	scale := float64(maxDimension) / float64(max(w, h))
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// resolve confines src to ProjectBaseDir: absolute paths are rejected and
// any ".." component that would escape the base directory is rejected.
func (p *AttachmentPipeline) resolve(src string) (string, error) {
	if filepath.IsAbs(src) {
		return "", fmt.Errorf("attachment path must be relative to the project directory: %q", src)
	}
	joined := filepath.Join(p.ProjectBaseDir, src)
	rel, err := filepath.Rel(p.ProjectBaseDir, joined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("attachment path escapes project directory: %q", src)
	}
	return joined, nil
}
