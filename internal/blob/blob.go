package blob

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// File is a named binary input with a declared media type.
type File interface {
	Name() string
	ContentType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type memFile struct {
	name        string
	contentType string
	data        []byte
}

// FromBytes wraps in-memory content.
func FromBytes(name, contentType string, data []byte) File {
	return &memFile{name: name, contentType: contentType, data: data}
}

func (f *memFile) Name() string        { return f.name }
func (f *memFile) ContentType() string { return f.contentType }
func (f *memFile) Size() int64         { return int64(len(f.data)) }

func (f *memFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type multipartFile struct {
	header *multipart.FileHeader
}

// FromMultipart wraps an uploaded form file. The media type is the one the
// browser declared for the part.
func FromMultipart(header *multipart.FileHeader) File {
	return &multipartFile{header: header}
}

func (f *multipartFile) Name() string { return f.header.Filename }
func (f *multipartFile) Size() int64  { return f.header.Size }

func (f *multipartFile) ContentType() string {
	return mediaType(f.header.Header.Get("Content-Type"))
}

func (f *multipartFile) Open() (io.ReadCloser, error) {
	file, err := f.header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", f.header.Filename, err)
	}

	return file, nil
}

type diskFile struct {
	path        string
	contentType string
	size        int64
}

// FromPath wraps a file on disk. The media type is taken from the extension
// and falls back to content sniffing.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	ct := mediaType(mime.TypeByExtension(filepath.Ext(path)))
	if ct == "" {
		ct, err = sniff(path)
		if err != nil {
			return nil, err
		}
	}

	return &diskFile{path: path, contentType: ct, size: info.Size()}, nil
}

func (f *diskFile) Name() string        { return filepath.Base(f.path) }
func (f *diskFile) ContentType() string { return f.contentType }
func (f *diskFile) Size() int64         { return f.size }

func (f *diskFile) Open() (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}

	return file, nil
}

func sniff(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	buffer := make([]byte, 512)

	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	return mediaType(http.DetectContentType(buffer[:n])), nil
}

// mediaType strips parameters such as charset.
func mediaType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	return mt
}
