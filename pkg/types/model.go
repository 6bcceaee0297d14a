package types

import "io"

// UploadedFile is a single file received in a request. Name may contain '/'.
type UploadedFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type Kind string

const (
	KindFolder     Kind = "folder"
	KindArchive    Kind = "archive"
	KindSingleFile Kind = "file"
)

// Upload is resolved once at the HTTP boundary. Folder uploads carry every
// file; Archive and SingleFile carry exactly one.
type Upload struct {
	Kind  Kind
	Files []UploadedFile
}

// RootName is the name the project is derived from: the name of the first file.
func (u Upload) RootName() string {
	if len(u.Files) == 0 {
		return ""
	}
	return u.Files[0].Name
}

type Project struct {
	Name string `json:"name"`
	Dir  string `json:"-"`
	URL  string `json:"url"`
}

// Result summarizes a finished publish.
type Result struct {
	Project Project
	Kind    Kind
	Written int
	Failed  int
}
