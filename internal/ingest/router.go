package ingest

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/MalithGihan/sitehost-service/pkg/types"
)

const (
	FolderField = "files[]"
	FileField   = "project"
)

var ErrNoFiles = errors.New("no files were uploaded")

// DetectType classifies a single uploaded file by its extension.
func DetectType(name string) types.Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".zip":
		return types.KindArchive
	default:
		return types.KindSingleFile
	}
}

// Folder builds a folder upload from the repeated files[] field.
func Folder(form *multipart.Form) (types.Upload, error) {
	if form == nil || len(form.File[FolderField]) == 0 {
		return types.Upload{}, ErrNoFiles
	}
	up := types.Upload{Kind: types.KindFolder}
	for _, fh := range form.File[FolderField] {
		up.Files = append(up.Files, fromHeader(fh))
	}
	return up, nil
}

// File builds an archive or single-file upload from the project field.
func File(form *multipart.Form) (types.Upload, error) {
	if form == nil || len(form.File[FileField]) == 0 {
		return types.Upload{}, ErrNoFiles
	}
	f := fromHeader(form.File[FileField][0])
	return types.Upload{Kind: DetectType(f.Name), Files: []types.UploadedFile{f}}, nil
}

func fromHeader(fh *multipart.FileHeader) types.UploadedFile {
	return types.UploadedFile{
		Name: FullName(fh),
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// FullName returns the filename as the client sent it. mime/multipart keeps
// only the base name in FileHeader.Filename, which would lose the folder
// structure of a directory upload.
func FullName(fh *multipart.FileHeader) string {
	if cd := fh.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return strings.ReplaceAll(name, "\\", "/")
			}
		}
	}
	return fh.Filename
}
