package project

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MalithGihan/sitehost-service/internal/metrics"
	"github.com/MalithGihan/sitehost-service/internal/sanitize"
	"github.com/MalithGihan/sitehost-service/internal/store"
	"github.com/MalithGihan/sitehost-service/pkg/types"
)

func memFile(name, content string) types.UploadedFile {
	return types.UploadedFile{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func folder(files ...types.UploadedFile) types.Upload {
	return types.Upload{Kind: types.KindFolder, Files: files}
}

func zipUpload(t *testing.T, name string, entries map[string]string) types.Upload {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for n, c := range entries {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(c))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return types.Upload{Kind: types.KindArchive, Files: []types.UploadedFile{memFile(name, buf.String())}}
}

func setup(t *testing.T) (*Publisher, *store.FS) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "sites"))
	require.NoError(t, err)
	p, err := NewPublisher(st, 4, metrics.New(), zap.NewNop())
	require.NoError(t, err)
	return p, st
}

// tree lists every regular file under dir as slash paths.
func tree(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestNewPublisher_RequiresStore(t *testing.T) {
	_, err := NewPublisher(nil, 1, nil, nil)
	assert.Error(t, err)
}

func TestPublish_Folder(t *testing.T) {
	p, st := setup(t)

	res, err := p.Publish(context.Background(), folder(
		memFile("MySite/index.html", "<h1>hi</h1>"),
		memFile("MySite/css/a.css", "body{}"),
	))
	require.NoError(t, err)

	assert.Equal(t, "mysite", res.Project.Name)
	assert.Equal(t, "/sites/mysite", res.Project.URL)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, []string{"css/a.css", "index.html"}, tree(t, st.ProjectDir("mysite")))

	b, err := os.ReadFile(filepath.Join(st.ProjectDir("mysite"), "css", "a.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(b))
}

func TestPublish_ReplacesPreviousProject(t *testing.T) {
	p, st := setup(t)
	ctx := context.Background()

	_, err := p.Publish(ctx, folder(
		memFile("Site/old.html", "old"),
		memFile("Site/index.html", "v1"),
	))
	require.NoError(t, err)

	_, err = p.Publish(ctx, folder(memFile("SITE/index.html", "v2")))
	require.NoError(t, err)

	assert.Equal(t, []string{"index.html"}, tree(t, st.ProjectDir("site")))
	b, err := os.ReadFile(filepath.Join(st.ProjectDir("site"), "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))
}

func TestPublish_Archive(t *testing.T) {
	p, st := setup(t)

	res, err := p.Publish(context.Background(), zipUpload(t, "Demo.zip", map[string]string{
		"index.html":   "demo",
		"img/logo.png": "png",
	}))
	require.NoError(t, err)
	assert.Equal(t, "demo", res.Project.Name)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, []string{"img/logo.png", "index.html"}, tree(t, st.ProjectDir("demo")))
}

func TestPublish_CorruptedArchive(t *testing.T) {
	p, st := setup(t)

	up := types.Upload{Kind: types.KindArchive, Files: []types.UploadedFile{memFile("Broken.zip", "garbage")}}
	_, err := p.Publish(context.Background(), up)
	require.Error(t, err)

	assert.Empty(t, tree(t, st.ProjectDir("broken")), "no temp archive may be left behind")
}

func TestPublish_SingleFile(t *testing.T) {
	p, st := setup(t)

	res, err := p.Publish(context.Background(), types.Upload{
		Kind:  types.KindSingleFile,
		Files: []types.UploadedFile{memFile("page.html", "<p>x</p>")},
	})
	require.NoError(t, err)
	assert.Equal(t, "page-html", res.Project.Name)
	assert.Equal(t, []string{"page.html"}, tree(t, st.ProjectDir("page-html")))
}

func TestPublish_EmptyNameRejectedBeforeMutation(t *testing.T) {
	p, st := setup(t)

	_, err := p.Publish(context.Background(), folder(memFile("/", "x")))
	assert.ErrorIs(t, err, sanitize.ErrEmptyProjectName)

	names, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPublish_UnknownKind(t *testing.T) {
	p, st := setup(t)
	_, err := p.Publish(context.Background(), types.Upload{Kind: "tarball", Files: []types.UploadedFile{memFile("x/y", "")}})
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.False(t, st.Exists("x"))
}

func TestPublish_NoFiles(t *testing.T) {
	p, _ := setup(t)
	_, err := p.Publish(context.Background(), types.Upload{Kind: types.KindFolder})
	assert.Error(t, err)
}

func TestPublish_ConcurrentSameNameDoNotInterleave(t *testing.T) {
	p, st := setup(t)

	upload := func(tag string) types.Upload {
		var files []types.UploadedFile
		for i := 0; i < 20; i++ {
			files = append(files, memFile(fmt.Sprintf("Race/%s/%02d.txt", tag, i), tag))
		}
		return folder(files...)
	}

	for round := 0; round < 5; round++ {
		var wg sync.WaitGroup
		for _, tag := range []string{"a", "b", "c"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := p.Publish(context.Background(), upload(tag))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		files := tree(t, st.ProjectDir("race"))
		require.Len(t, files, 20)
		prefix := files[0][:2]
		for _, f := range files {
			assert.True(t, strings.HasPrefix(f, prefix), "mixed project tree: %v", files)
		}
	}
}

func TestResolve(t *testing.T) {
	p, st := setup(t)

	h, err := p.Resolve("My Project")
	require.NoError(t, err)
	defer h.Release()

	assert.Equal(t, "my-project", h.Name)
	assert.Equal(t, st.ProjectDir("my-project"), h.Dir)
	assert.DirExists(t, h.Dir)

	_, err = p.Resolve("")
	assert.ErrorIs(t, err, sanitize.ErrEmptyProjectName)
}
