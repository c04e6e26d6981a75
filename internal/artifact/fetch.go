package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// manifest lists the files a remote bundle is composed of.
type manifest struct {
	Files []string `json:"files"`
}

// Fetch downloads a bundle from baseURL into dir before loading. The
// remote layout mirrors the local one, with a manifest.json listing the
// bundle files. Fetch is a one-time startup step; a failed download is
// fatal upstream, never retried lazily per request.
func Fetch(baseURL, dir string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().SetTimeout(timeout)
	base := strings.TrimRight(baseURL, "/")

	var m manifest
	resp, err := client.R().SetResult(&m).Get(base + "/manifest.json")
	if err != nil {
		return fmt.Errorf("fetch manifest: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("fetch manifest: %s", resp.Status())
	}
	if len(m.Files) == 0 {
		return fmt.Errorf("manifest lists no files")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	for _, name := range m.Files {
		if name != filepath.Base(name) || name == "." || name == ".." {
			return fmt.Errorf("manifest entry %q is not a plain file name", name)
		}
		resp, err := client.R().Get(base + "/" + name)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", name, err)
		}
		if resp.IsError() {
			return fmt.Errorf("fetch %s: %s", name, resp.Status())
		}
		if err := os.WriteFile(filepath.Join(dir, name), resp.Body(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		log.Debug().Str("file", name).Int("bytes", len(resp.Body())).Msg("artifact downloaded")
	}

	log.Info().Str("url", base).Int("files", len(m.Files)).Msg("artifact bundle fetched")
	return nil
}
