package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG signature for content sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

// createTestFileHeader builds a real multipart.FileHeader, optionally overriding its size
func createTestFileHeader(t *testing.T, filename string, size int64, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.Len(t, form.File["image"], 1)
	fileHeader := form.File["image"][0]
	if size >= 0 {
		fileHeader.Size = size
	}
	return fileHeader
}

func TestValidateImageFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantCode string
	}{
		{name: "valid png", filename: "widget.png", size: 1024},
		{name: "upper case extension", filename: "WIDGET.PNG", size: 1024},
		{name: "exactly at limit", filename: "widget.png", size: MaxFileSize},
		{name: "too large", filename: "widget.png", size: MaxFileSize + 1, wantCode: "FILE_TOO_LARGE"},
		{name: "jpg rejected", filename: "widget.jpg", size: 1024, wantCode: "INVALID_FILE_FORMAT"},
		{name: "gif rejected", filename: "widget.gif", size: 1024, wantCode: "INVALID_FILE_FORMAT"},
		{name: "no extension", filename: "widget", size: 1024, wantCode: "INVALID_FILE_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileHeader := createTestFileHeader(t, tt.filename, tt.size, pngHeader)

			err := ValidateImageFile(fileHeader)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}

			var fileErr *FileUploadError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, tt.wantCode, fileErr.Code)
		})
	}
}

func TestReadImageFile_Success(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 64)...)
	fileHeader := createTestFileHeader(t, "widget.png", -1, content)

	got, err := ReadImageFile(fileHeader)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestReadImageFile_RejectsNonPNGContent(t *testing.T) {
	fileHeader := createTestFileHeader(t, "widget.png", -1, []byte("definitely not an image"))

	_, err := ReadImageFile(fileHeader)

	var fileErr *FileUploadError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "INVALID_FILE_CONTENT", fileErr.Code)
}

func TestReadImageFile_RejectsBadExtensionBeforeReading(t *testing.T) {
	fileHeader := createTestFileHeader(t, "widget.jpg", -1, pngHeader)

	_, err := ReadImageFile(fileHeader)

	var fileErr *FileUploadError
	require.ErrorAs(t, err, &fileErr)
	assert.Equal(t, "INVALID_FILE_FORMAT", fileErr.Code)
}

func TestProductImageKey(t *testing.T) {
	now := time.Unix(1700000000, 0)

	assert.Equal(t, "products/42/1700000000_widget.png", ProductImageKey(42, "widget.png", now))
	assert.Equal(t, "products/7/1700000000_my_photo.png", ProductImageKey(7, "../../my photo.png", now))
}

func TestFileUploadError_Error(t *testing.T) {
	err := &FileUploadError{Code: "FILE_TOO_LARGE", Message: "too big"}
	assert.Equal(t, "too big", err.Error())
}
