// Package attachment finds media referenced by takeout documents and
// encodes it for the backup format.
package attachment

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/model"
)

// The export truncates long media file names to this many characters.
const maxNameLength = 50

var knownExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".mp4", ".3gp", ".mp3", ".amr", ".vcf"}

var fallbackTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".3gp":  "video/3gpp",
	".mp3":  "audio/mpeg",
	".amr":  "audio/amr",
	".vcf":  "text/x-vcard",
}

// Locator resolves attachment references relative to a document.
type Locator struct {
	readFile func(string) ([]byte, error)
	stat     func(string) (os.FileInfo, error)
}

// NewLocator creates a locator backed by the local filesystem.
func NewLocator() *Locator {
	return &Locator{
		readFile: os.ReadFile,
		stat:     os.Stat,
	}
}

// Find locates ref next to the document in dir and returns it encoded.
// It returns common.ErrAttachmentNotFound when no candidate file exists.
func (l *Locator) Find(dir, ref string) (*model.Attachment, error) {
	path, ok := l.locate(dir, ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrAttachmentNotFound, ref)
	}

	data, err := l.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrAttachmentNotFound, ref, err)
	}

	name := filepath.Base(path)
	return &model.Attachment{
		Name:        name,
		ContentType: ContentType(name),
		Data:        base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (l *Locator) locate(dir, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}

	stems := []string{ref}
	if utf8.RuneCountInString(ref) > maxNameLength {
		stems = append(stems, string([]rune(ref)[:maxNameLength]))
	}

	for _, stem := range stems {
		// References never leave the document's directory.
		stem = filepath.FromSlash(stem)
		if !filepath.IsLocal(stem) {
			continue
		}
		base := filepath.Join(dir, stem)
		if l.isFile(base) {
			return base, true
		}
		for _, ext := range knownExtensions {
			if l.isFile(base + ext) {
				return base + ext, true
			}
		}
	}
	return "", false
}

func (l *Locator) isFile(path string) bool {
	info, err := l.stat(path)
	return err == nil && !info.IsDir()
}

// ContentType guesses the MIME type of an attachment from its name.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := fallbackTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
