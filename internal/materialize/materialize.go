// Package materialize copies message attachments out of the store's
// attachment tree into an export directory, normalizing images along
// the way.
package materialize

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pmarks/imexport/internal/chatdb"
)

// Materialized describes one attachment written into the export tree.
type Materialized struct {
	// Path is relative to the export output root.
	Path string
	// MIME is the content-sniffed type, not the store's declared one.
	MIME string
	// Name is the attachment's display name.
	Name string
}

// Materializer copies attachments beneath OutputRoot/attachments,
// classified into images, videos, audio, and documents by sniffed type.
type Materializer struct {
	// AttachmentRoot is the store's attachment directory. Relative
	// store paths resolve against it, and no source outside it is read.
	AttachmentRoot string

	// OutputRoot is the export output directory.
	OutputRoot string

	// Detect sniffs the MIME type of a file by content. Defaults to
	// DetectMIME when nil.
	Detect func(path string) string

	Log *slog.Logger
}

// DetectMIME sniffs a file's MIME type from its content.
func DetectMIME(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	// Strip parameters such as "; charset=utf-8".
	return strings.TrimSpace(strings.SplitN(mt.String(), ";", 2)[0])
}

func (m *Materializer) detect(path string) string {
	if m.Detect != nil {
		return m.Detect(path)
	}
	return DetectMIME(path)
}

func (m *Materializer) logger() *slog.Logger {
	if m.Log != nil {
		return m.Log
	}
	return slog.Default()
}

// Materialize resolves att's stored path, copies or re-encodes the
// content into the export tree, and returns where it landed. A missing
// source file returns (nil, nil): broken attachment references are
// common in real stores and never abort an export. Only unsafe paths
// and write failures return an error.
func (m *Materializer) Materialize(att chatdb.Attachment, messageID int64) (*Materialized, error) {
	if att.Path == "" {
		return nil, nil
	}

	src, err := m.resolveSource(att.Path)
	if err != nil {
		return nil, err
	}
	if src == "" {
		m.logger().Warn("attachment file missing, skipping",
			"message_id", messageID, "path", att.Path)
		return nil, nil
	}

	mime := strings.ToLower(m.detect(src))
	subdir := categorize(mime)

	name := filepath.Base(att.Path)
	outName := fmt.Sprintf("%d_%s", messageID, sanitizeFilename(name))

	destDir := filepath.Join(m.OutputRoot, "attachments", subdir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment directory: %w", err)
	}

	if strings.HasPrefix(mime, "image/") {
		outName = strings.TrimSuffix(outName, filepath.Ext(outName)) + ".png"
		dest := filepath.Join(destDir, outName)
		if err := normalizeImage(src, dest); err != nil {
			// Undecodable image: degrade to a byte copy of the original.
			m.logger().Warn("image normalization failed, copying raw",
				"message_id", messageID, "path", att.Path, "error", err)
			if err := copyFile(src, dest); err != nil {
				return nil, err
			}
		} else {
			mime = "image/png"
		}
	} else {
		dest := filepath.Join(destDir, outName)
		if err := copyFile(src, dest); err != nil {
			return nil, err
		}
	}

	displayName := att.Name
	if displayName == "" {
		displayName = name
	}
	return &Materialized{
		Path: filepath.ToSlash(filepath.Join("attachments", subdir, outName)),
		MIME: mime,
		Name: displayName,
	}, nil
}

// resolveSource maps a stored attachment path to a readable file within
// the attachment tree. It returns "" when the file does not exist, and
// an error for paths that escape the tree. Stored paths come in two
// shapes: home-relative absolute paths (~/Library/Messages/...) and
// paths relative to the attachment root.
func (m *Materializer) resolveSource(stored string) (string, error) {
	if containsTraversal(stored) {
		return "", fmt.Errorf("unsafe attachment path %q", stored)
	}

	expanded := expandHome(stored)
	candidate := expanded
	if !filepath.IsAbs(expanded) && m.AttachmentRoot != "" {
		candidate = filepath.Join(m.AttachmentRoot, expanded)
	}

	if !m.withinRoot(candidate) {
		return "", fmt.Errorf("attachment path %q resolves outside the attachment tree", stored)
	}
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate, nil
	}
	return "", nil
}

// withinRoot reports whether path is inside the attachment root. When
// no root is configured, only relative escape is rejected (handled by
// the traversal check), so absolute stores still work.
func (m *Materializer) withinRoot(path string) bool {
	if m.AttachmentRoot == "" {
		return true
	}
	root, err := filepath.Abs(expandHome(m.AttachmentRoot))
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func containsTraversal(p string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(p), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// categorize maps a sniffed MIME type onto the export subdirectory for
// its top-level category. Anything unrecognized lands in documents.
func categorize(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "images"
	case strings.HasPrefix(mime, "video/"):
		return "videos"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	default:
		return "documents"
	}
}

func sanitizeFilename(s string) string {
	var result []rune
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\n', '\r', '\t':
			result = append(result, '_')
		default:
			result = append(result, r)
		}
	}
	return string(result)
}

func copyFile(src, dest string) error {
	in, err := openNoFollow(src)
	if err != nil {
		return fmt.Errorf("open attachment %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy attachment to %s: %w", dest, err)
	}
	return out.Close()
}
