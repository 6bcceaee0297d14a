package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MalithGihan/sitehost-service/internal/ingest"
)

var (
	serverURL string
	pushName  string
)

var pushCmd = &cobra.Command{
	Use:   "push <folder|file>",
	Short: "Upload a folder, zip archive or single file to a sitehost server",
	Long: `Upload a site to a running sitehost server.

A folder is sent to /upload-folder with every file path prefixed by the
folder name, exactly like a browser directory upload. Anything else goes
to /upload; a .zip is extracted server side.

Examples:
  sitehost push ./MySite
  sitehost push demo.zip --server http://host:3000
  sitehost push ./build --name landing`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&serverURL, "server", "http://localhost:3000", "sitehost server URL")
	pushCmd.Flags().StringVar(&pushName, "name", "", "project folder name for folder uploads (default: folder base name)")
}

type pushResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Error   string `json:"error"`
}

func runPush(cmd *cobra.Command, args []string) error {
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Minute}

	var res *pushResult
	if info.IsDir() {
		res, err = pushDir(cmd.Context(), client, serverURL, args[0], pushName)
	} else {
		res, err = pushFile(cmd.Context(), client, serverURL, args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded: %s%s/\n", strings.TrimRight(serverURL, "/"), res.URL)
	return nil
}

// pushDir uploads every regular file under dir as name/<relative path>.
func pushDir(ctx context.Context, client *http.Client, server, dir, name string) (*pushResult, error) {
	if name == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		name = filepath.Base(abs)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s contains no files", dir)
	}

	return post(ctx, client, server+"/upload-folder", func(mw *multipart.Writer) error {
		for _, path := range files {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			if err := addFile(mw, ingest.FolderField, name+"/"+filepath.ToSlash(rel), path); err != nil {
				return err
			}
		}
		return nil
	})
}

func pushFile(ctx context.Context, client *http.Client, server, path string) (*pushResult, error) {
	return post(ctx, client, server+"/upload", func(mw *multipart.Writer) error {
		return addFile(mw, ingest.FileField, filepath.Base(path), path)
	})
}

func addFile(mw *multipart.Writer, field, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := mw.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// post streams the multipart body written by fill to url.
func post(ctx context.Context, client *http.Client, url string, fill func(*multipart.Writer) error) (*pushResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := fill(mw)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	var res pushResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("unexpected response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || !res.Success {
		return nil, fmt.Errorf("upload rejected (%s): %s", resp.Status, res.Error)
	}
	return &res, nil
}
